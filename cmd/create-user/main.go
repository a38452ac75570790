// CLI tool to create a user with a bcrypt-hashed password and an auth token.
// Usage: go run ./cmd/create-user
package main

import (
	"bufio"
	"context"
	"fmt"
	"net/mail"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		os.Exit(1)
	}

	conn, err := pgx.Connect(context.Background(), os.Getenv("DB_URL"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close(context.Background())

	reader := bufio.NewReader(os.Stdin)
	prompt := func(label string) string {
		fmt.Print(label)
		s, _ := reader.ReadString('\n')
		return strings.TrimSpace(s)
	}

	name := prompt("Name: ")
	email := prompt("Email: ")
	password := prompt("Password: ")
	role := prompt("Role [user]: ")

	role, err = normalizeRole(role)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid email %q: %v\n", email, err)
		os.Exit(1)
	}
	if password == "" {
		fmt.Fprintln(os.Stderr, "Password must not be empty")
		os.Exit(1)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error hashing password: %v\n", err)
		os.Exit(1)
	}

	authToken := uuid.New().String()

	var userID int
	err = conn.QueryRow(context.Background(),
		`INSERT INTO users (name, email, password, auth_token, role)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		name, email, string(hash), authToken, role,
	).Scan(&userID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating user: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nUser created successfully!\n")
	fmt.Printf("  ID:         %d\n", userID)
	fmt.Printf("  Email:      %s\n", email)
	fmt.Printf("  Role:       %s\n", role)
	fmt.Printf("  Auth Token: %s\n", authToken)
}

// normalizeRole defaults an empty answer to "user".
func normalizeRole(role string) (string, error) {
	switch strings.ToLower(role) {
	case "", "user":
		return "user", nil
	case "admin":
		return "admin", nil
	}
	return "", fmt.Errorf("role must be user or admin, got %q", role)
}
