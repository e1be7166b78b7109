package main

import (
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/polyglot-bot/polyglot/pkg/protocol"
)

func newWatchCmd() *cobra.Command {
	var (
		url   string
		count int
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print translation events from a running bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, _, err := websocket.DefaultDialer.DialContext(cmd.Context(), url, nil)
			if err != nil {
				return fmt.Errorf("dial failed: %w", err)
			}
			defer conn.Close()

			go func() {
				<-cmd.Context().Done()
				_ = conn.Close()
			}()

			out := cmd.OutOrStdout()
			seen := 0
			for count <= 0 || seen < count {
				var msg protocol.Message
				if err := conn.ReadJSON(&msg); err != nil {
					if cmd.Context().Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
						return nil
					}
					return fmt.Errorf("read failed: %w", err)
				}
				if msg.Kind != protocol.MessageKindEvent {
					continue
				}
				payload, err := json.Marshal(msg)
				if err != nil {
					return fmt.Errorf("encode event: %w", err)
				}
				fmt.Fprintln(out, string(payload))
				seen++
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "ws://127.0.0.1:8080/events", "event feed URL")
	cmd.Flags().IntVar(&count, "count", 0, "exit after this many events (0 = run until interrupted)")
	return cmd
}
