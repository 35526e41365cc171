package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func main() {
	secret := flag.String("secret", "", "JWT signing secret (matches the server's JWT_SECRET)")
	userID := flag.String("user", "", "User ID to embed in the token")
	ttl := flag.Duration("ttl", 24*time.Hour, "Token lifetime")
	flag.Parse()

	if *secret == "" || *userID == "" {
		fmt.Fprintln(os.Stderr, "Usage: token -secret <jwt-secret> -user <user-id> [-ttl 24h]")
		os.Exit(1)
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":  *userID,
		"iat": now.Unix(),
		"exp": now.Add(*ttl).Unix(),
	})

	signed, err := token.SignedString([]byte(*secret))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to sign token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(signed)
}
