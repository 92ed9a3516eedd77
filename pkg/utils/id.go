package utils

import (
	"fmt"

	"github.com/google/uuid"
)

// GenerateID returns a random identifier such as "auction_9b2c...".
func GenerateID(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, uuid.NewString())
}
