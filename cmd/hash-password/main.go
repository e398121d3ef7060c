// Command hash-password generates the bcrypt hash expected in
// ADMIN_PASSWORD_HASH. Run once when provisioning the operator account.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joaocorreiaageplan-lgtm/construcost-ai-app/utils"
)

func main() {
	if len(os.Args) != 2 {
		log.Fatalf("usage: %s <password>", os.Args[0])
	}

	hash, err := utils.HashPassword(os.Args[1])
	if err != nil {
		log.Fatalf("hash: %v", err)
	}
	fmt.Println(string(hash))
}
