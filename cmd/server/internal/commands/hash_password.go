package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 12

// HashPasswordCmd prints a bcrypt hash for --superadmin-password-hash.
type HashPasswordCmd struct {
	Password string `help:"password to hash; read from stdin when empty" env:"TRADEJOURNAL_PASSWORD"`
	Cost     int    `help:"bcrypt cost" default:"12"`
}

func (c *HashPasswordCmd) Run(globals *Globals) error {
	password := c.Password
	if password == "" {
		var err error
		if password, err = readPassword(os.Stdin); err != nil {
			return err
		}
	}

	hash, err := hashPassword(password, c.Cost)
	if err != nil {
		return err
	}

	fmt.Println(string(hash))
	return nil
}

func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func hashPassword(password string, cost int) ([]byte, error) {
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return hash, nil
}
