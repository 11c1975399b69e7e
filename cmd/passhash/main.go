// Command passhash prints a bcrypt hash of the group passphrase for the
// GROUP_PASSPHRASE_HASH setting.
//
//	passhash -passphrase "correct horse battery"
//	echo "correct horse battery" | passhash
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/equisplit/internal/auth"
	"github.com/mmynk/equisplit/pkg/logging"
)

func main() {
	passphrase := flag.String("passphrase", "", "passphrase to hash (read from stdin when empty)")
	cost := flag.Int("cost", bcrypt.DefaultCost, "bcrypt cost")
	flag.Parse()

	logging.Setup("info", "text")

	value := *passphrase
	if value == "" {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			slog.Error("Failed to read passphrase from stdin", "error", err)
			os.Exit(1)
		}
		value = strings.TrimRight(line, "\r\n")
	}

	hash, err := auth.HashPassphrase(value, *cost)
	if err != nil {
		slog.Error("Failed to hash passphrase", "error", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}
