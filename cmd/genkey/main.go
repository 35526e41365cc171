package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

func main() {
	fmt.Printf("ENCRYPTION_SECRET=%s\n", randomString(32))
	fmt.Printf("ENCRYPTION_SALT=%s\n", randomString(16))
	fmt.Printf("JWT_SECRET=%s\n", randomString(32))
}

func randomString(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
