package infrastructure

import (
	"fmt"
	math "math/rand"
	"time"

	"bakchod/pkg/logger"
)

// TimeOperation executes an operation and logs its execution time
func TimeOperation(log logger.Logger, name string, operation func() error) error {
	start := time.Now()
	err := operation()
	elapsed := time.Since(start)
	log.Info(fmt.Sprintf("Operation %s took %s", name, elapsed))
	return err
}

func GenerateRandomString(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[math.Intn(len(charset))]
	}
	return string(b)
}
