package utils

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenerateID generates a unique ID
func GenerateID() string {
	return uuid.NewString()
}

// GenerateRunID generates a search run ID with a timestamp prefix
func GenerateRunID() string {
	timestamp := time.Now().Format("20060102-150405")
	id := uuid.New()
	return fmt.Sprintf("search-%s-%s", timestamp, id.String()[:8])
}
