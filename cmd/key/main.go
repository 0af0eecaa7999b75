package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"peertrack/internal/domain/user"
	"peertrack/internal/general/jwt"
)

func main() {
	var (
		partyID = flag.String("party-id", "", "UUID of the party (subject)")
		role    = flag.String("role", "REQUESTER", "Party role: REQUESTER | RESPONDER")
		secret  = flag.String("secret", "", "JWT HMAC secret (HS256)")
		ttl     = flag.Duration("ttl", 2*time.Hour, "Token lifetime")
	)
	flag.Parse()

	if *partyID == "" || *secret == "" {
		fmt.Fprintln(os.Stderr, "usage: key --party-id=<uuid> --role=REQUESTER --secret='<secret>' [--ttl=2h]")
		os.Exit(2)
	}

	r, err := user.ParseRole(*role)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	token, claims, err := jwt.NewManager(*secret, *ttl).IssuePartyToken(*partyID, r)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	fmt.Println("TOKEN:")
	fmt.Println(token)
	fmt.Println("\nCLAIMS:")
	fmt.Printf("  sub:  %s\n", claims.Subject)
	fmt.Printf("  role: %s\n", claims.Role)
	fmt.Printf("  iat:  %s\n", claims.IssuedAt.Time.UTC().Format(time.RFC3339))
	fmt.Printf("  exp:  %s\n", claims.ExpiresAt.Time.UTC().Format(time.RFC3339))
}
