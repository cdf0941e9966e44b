// README: One-shot grounded completion against a sample snapshot; smoke test for the Gemini key.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"prestige/internal/ai"
	"prestige/internal/modules/entity"
	"prestige/internal/modules/snapshot"
)

func main() {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		log.Fatal("GEMINI_API_KEY environment variable not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	provider, err := ai.NewGeminiProvider(ctx, apiKey, os.Getenv("GEMINI_MODEL"))
	if err != nil {
		log.Fatalf("Failed to initialize AI provider: %v", err)
	}
	defer provider.Close()

	// Simulated world
	now := time.Now()
	start := now.Add(26 * time.Hour)
	end := start.Add(2 * time.Hour)
	points := int64(740)
	snap := snapshot.Build(snapshot.Input{
		Profile: entity.Profile{ID: "1", Username: "demo", Name: "Demo User", Role: entity.RoleRegular, Points: &points},
		Events: []entity.Event{
			{ID: "e1", Name: "Fall Mixer", Location: "Hart House", Start: &start, End: &end, Registered: true, Organizers: []string{}},
		},
		Transactions: []entity.Transaction{{ID: "t1", Points: 40, Type: "event", EventID: "e0"}},
		Now:          now,
	})

	userMessage := "How many points do I have, and what am I attending next?"
	if len(os.Args) > 1 {
		userMessage = strings.Join(os.Args[1:], " ")
	}
	fmt.Printf("User: %s\n", userMessage)

	reply, err := provider.Complete(ctx, ai.Request{
		System:      "You are Prestige Assistant for a points & events program. Be concise.",
		Temperature: 0.5,
		TopP:        0.9,
		Messages: []ai.Message{
			{Role: ai.RoleUser, Content: snap.Payload},
			{Role: ai.RoleUser, Content: userMessage},
		},
	})
	if err != nil {
		log.Fatalf("Error completing: %v", err)
	}
	fmt.Printf("AI Reply: %s\n", reply)
}
