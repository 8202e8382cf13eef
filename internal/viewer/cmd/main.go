// Terminal viewer: joins a seller channel, follows the auction, and
// submits bids from stdin.
//
// Usage:
//
//	viewer -url ws://localhost:8080/ws -channel handbag-hannah -user u1 -name alice
//
// Commands: "b" bids the next amount, "b <cents>" a custom amount,
// anything else is sent as chat.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/firmsnap/liveshop/internal/auction"
	"github.com/firmsnap/liveshop/internal/channel"
	"github.com/firmsnap/liveshop/internal/gateway"
	"github.com/firmsnap/liveshop/internal/viewer"
)

func main() {
	url := flag.String("url", "ws://localhost:8080/ws", "gateway WebSocket URL")
	handle := flag.String("channel", "", "seller handle to join")
	userID := flag.String("user", "", "user ID (empty for watch-only)")
	username := flag.String("name", "", "username")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if *handle == "" {
		fmt.Fprintln(os.Stderr, "usage: viewer -channel <seller-handle>")
		os.Exit(1)
	}

	ctx := context.Background()
	client, err := channel.Dial(ctx, *url)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect")
	}
	defer client.Close()

	topic := gateway.TopicForHandle(*handle)
	ch, snapshot, err := client.Join(ctx, topic, channel.JoinParams{
		UserID:   *userID,
		Username: *username,
	})
	if err != nil {
		log.Fatal().Err(err).Str("topic", topic).Msg("failed to join channel")
	}

	var bidder *viewer.Bidder
	if *userID != "" {
		bidder = &viewer.Bidder{UserID: *userID, Username: *username}
	}

	session, err := viewer.NewSession(ch, viewer.Config{
		Bidder:   bidder,
		Snapshot: snapshot,
		OnUpdate: printUpdate,
		OnChat: func(msg viewer.ChatMessage) {
			fmt.Printf("[chat] %s: %s\n", msg.Username, msg.Body)
		},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start session")
	}
	defer session.Close()

	fmt.Printf("joined %s\n", topic)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case line == "b":
			amount, err := session.PlaceBid(ctx)
			if err != nil {
				fmt.Printf("bid failed: %v\n", err)
				continue
			}
			fmt.Printf("bid %d submitted\n", amount)
		case strings.HasPrefix(line, "b "):
			amount, err := strconv.ParseInt(strings.TrimSpace(line[2:]), 10, 64)
			if err != nil {
				fmt.Println("usage: b <cents>")
				continue
			}
			if err := session.PlaceCustomBid(ctx, amount); err != nil {
				fmt.Printf("bid failed: %v\n", err)
				continue
			}
			fmt.Printf("bid %d submitted\n", amount)
		default:
			if err := session.SendChat(ctx, line); err != nil {
				fmt.Printf("chat failed: %v\n", err)
			}
		}
	}
}

func printUpdate(st auction.State, secondsLeft int64) {
	if st.AuctionID == "" {
		fmt.Println("[auction] none running")
		return
	}
	if !st.Active {
		fmt.Printf("[auction] %s ended after %d bids\n", st.Title, st.BidCount)
		return
	}
	highest := "no bids"
	if st.HighestBid != nil {
		highest = st.HighestBid.String()
	}
	fmt.Printf("[auction] %s | highest: %s | bids: %d | %ds left | next bid: %d\n",
		st.Title, highest, st.BidCount, secondsLeft, st.NextBid())
}
