// Command askclient talks to the assistant's gRPC API.
//
//	askclient -chat "hello"
//	askclient -file report.pdf -q "What is the total?"
//	askclient -session <id> -q "And the due date?"
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	grpcapi "ai-offline-assistant/internal/api/grpc"
)

func main() {
	serverAddr := flag.String("server", "localhost:50051", "gRPC server address")
	sessionID := flag.String("session", "", "Session ID (empty opens a new session)")
	chat := flag.String("chat", "", "Chat message sent without document grounding")
	file := flag.String("file", "", "Document to ingest (pdf, docx, png, jpg, jpeg)")
	question := flag.String("q", "", "Question about the session's document")
	timeout := flag.Duration("timeout", 3*time.Minute, "Call timeout")
	flag.Parse()

	if *chat == "" && *file == "" && *question == "" {
		flag.Usage()
		os.Exit(2)
	}

	conn, err := grpc.NewClient(*serverAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	client := grpcapi.NewClient(conn)
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	id := *sessionID

	if *chat != "" {
		reply, err := client.Chat(ctx, id, *chat)
		if err != nil {
			log.Fatalf("chat failed: %v", err)
		}
		id = reply.SessionID
		log.Printf("session=%s", id)
		log.Printf("Assistant: %s", reply.Answer)
	}

	if *file != "" {
		content, err := os.ReadFile(*file)
		if err != nil {
			log.Fatalf("failed to read %s: %v", *file, err)
		}
		ing, err := client.Ingest(ctx, id, filepath.Base(*file), content)
		if err != nil {
			log.Fatalf("ingest failed: %v", err)
		}
		id = ing.SessionID
		log.Printf("session=%s outcome=%s chars=%d", id, ing.Outcome, ing.Chars)
		if ing.Error != "" {
			log.Printf("extraction error: %s", ing.Error)
		}
	}

	if *question != "" {
		reply, err := client.Ask(ctx, id, *question)
		if err != nil {
			log.Fatalf("ask failed: %v", err)
		}
		log.Printf("session=%s", reply.SessionID)
		log.Printf("Answer: %s", reply.Answer)
	}
}
