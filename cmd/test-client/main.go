package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/georankers/visibility-agent/internal/api"
	"github.com/georankers/visibility-agent/internal/config"
	"github.com/georankers/visibility-agent/internal/session"
	"github.com/joho/godotenv"
)

func main() {
	fmt.Println("🔍 GeoRankers Visibility Agent - API Connectivity Test")
	fmt.Println("=====================================================")

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	sess, err := session.Open(cfg.SessionDBPath)
	if err != nil {
		log.Fatalf("Failed to open session store: %v", err)
	}
	defer sess.Close()

	client := api.NewClient(cfg.BaseURL, sess)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	fmt.Printf("\n📡 Testing gateway at %s...\n", cfg.BaseURL)
	fmt.Println(strings.Repeat("-", 40))

	// Login (or register on a fresh backend)
	fmt.Printf("🔸 Login as %s... ", cfg.AccountEmail)
	login := client.Login(ctx, api.LoginRequest{
		Email:    cfg.AccountEmail,
		Password: api.EncodePassword(cfg.AccountPassword),
	})
	if login == nil {
		fmt.Println("❌ FAILED, trying registration")
		reg := client.Register(ctx, api.RegisterRequest{
			Email:     cfg.AccountEmail,
			Password:  api.EncodePassword(cfg.AccountPassword),
			FirstName: cfg.FirstName,
			LastName:  cfg.LastName,
			AppName:   cfg.AppName,
		})
		if reg == nil {
			log.Fatal("Both login and registration failed")
		}
		sess.ApplyAuth(reg.AccessToken, reg.Application.ID)
		fmt.Println("✅ REGISTERED")
	} else {
		sess.ApplyAuth(login.AccessToken, login.ApplicationID())
		fmt.Println("✅ SUCCESS")
	}

	// Products
	fmt.Print("🔸 Listing products... ")
	products := client.GetProductsByApplication(ctx, sess.ApplicationID())
	fmt.Printf("✅ %d product(s)\n", len(products))

	if len(products) == 0 {
		fmt.Println("\n💡 No products yet; set BRAND_WEBSITE and KEYWORDS and run the agent to create one")
		return
	}

	product := products[0]
	fmt.Printf("   📝 Tracking: %s (%s)\n", product.Name, product.ID)

	// Analytics
	fmt.Print("🔸 Fetching today's analytics... ")
	res := client.GetProductAnalytics(ctx, product.ID, time.Now().Format("2006-01-02"))
	if res == nil || len(res.Analytics) == 0 {
		fmt.Println("⚠️  NO DATA (analysis may still be running)")
	} else {
		fmt.Printf("✅ %d record(s), latest status: %s\n", len(res.Analytics), res.Analytics[0].Status)
	}

	// Chatbot
	fmt.Print("🔸 Chatbot round-trip... ")
	answer := client.SendChatMessage(ctx, product.ID, "How visible is my brand this week?")
	if answer == nil {
		fmt.Println("❌ FAILED")
	} else {
		fmt.Printf("✅ SUCCESS\n   💬 %s\n", answer.Answer)
	}

	fmt.Println("\n✅ API connectivity test completed!")
}
