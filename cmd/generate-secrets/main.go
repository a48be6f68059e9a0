package main

import (
	"fmt"
	"log"

	"github.com/careride/facility-backend/internal/utils"
)

func main() {
	fmt.Println("===========================================")
	fmt.Println("Secret Generator for CareRide Facility Backend")
	fmt.Println("===========================================")
	fmt.Println()

	accessSecret, refreshSecret, err := utils.GenerateJWTSecrets()
	if err != nil {
		log.Fatalf("Failed to generate secrets: %v", err)
	}

	resetToken, resetHash, err := utils.GenerateResetCredentials()
	if err != nil {
		log.Fatalf("Failed to generate reset credentials: %v", err)
	}

	fmt.Println("✅ Secrets generated successfully!")
	fmt.Println()
	fmt.Println("Add these to your .env file or deployment secrets:")
	fmt.Println()
	fmt.Printf("JWT_SECRET=%s\n", accessSecret)
	fmt.Printf("JWT_REFRESH_SECRET=%s\n", refreshSecret)
	fmt.Printf("BILLING_RESET_TOKEN_HASH=%s\n", resetHash)
	fmt.Println()
	fmt.Println("Hand the raw reset token to the operator out of band:")
	fmt.Println()
	fmt.Printf("RESET TOKEN (not stored server-side): %s\n", resetToken)
	fmt.Println()
	fmt.Println("⚠️  IMPORTANT: Keep these secrets safe and never commit them to version control!")
	fmt.Println("===========================================")
}
