package api

import "fmt"

// Backend endpoint paths, relative to the configured base URL.
const (
	pathLogin                     = "/users/login"
	pathRegister                  = "/users/register-with-app"
	pathCreateProductWithKeywords = "/products/with-keywords"
	pathGenerateWithKeywords      = "/products/generate/with-keywords"
	pathProductAnalyticsFmt       = "/products/analytics/%s"
	pathKeywordAnalyticsFmt       = "/analytics/keywords/%s"
	pathProductsByApplicationFmt  = "/products/application/%s"
	pathChatHistoryFmt            = "/products/chatbot/history/%s"
	pathSendChatMessageFmt        = "/products/chatbot/%s"
)

func productAnalyticsPath(productID string) string {
	return fmt.Sprintf(pathProductAnalyticsFmt, productID)
}

func keywordAnalyticsPath(keywordID string) string {
	return fmt.Sprintf(pathKeywordAnalyticsFmt, keywordID)
}

func productsByApplicationPath(applicationID string) string {
	return fmt.Sprintf(pathProductsByApplicationFmt, applicationID)
}

func chatHistoryPath(productID string) string {
	return fmt.Sprintf(pathChatHistoryFmt, productID)
}

func sendChatMessagePath(productID string) string {
	return fmt.Sprintf(pathSendChatMessageFmt, productID)
}
