package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Phuc-215/WEBRTC/internal/client"
)

var joinName string

var joinCmd = &cobra.Command{
	Use:   "join <room>",
	Short: "Register a name, join a room and print signaling events",
	Args:  cobra.ExactArgs(1),
	RunE:  runJoin,
}

func init() {
	joinCmd.Flags().StringVarP(&joinName, "name", "n", "", "display name to register (required)")
	joinCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(joinCmd)
}

func runJoin(cmd *cobra.Command, args []string) error {
	roomID := args[0]

	c := client.New(serverURL)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.Connect(ctx); err != nil {
		return fmt.Errorf("connect to %s: %w", serverURL, err)
	}

	if err := c.Register(joinName); err != nil {
		return fmt.Errorf("register: %w", err)
	}

	events := c.Events()
	select {
	case name := <-events.Registered:
		fmt.Printf("registered as %s\n", name)
	case msg := <-events.ServerError:
		return fmt.Errorf("server rejected registration: %s", msg)
	case <-time.After(10 * time.Second):
		return fmt.Errorf("timed out waiting for registration")
	}

	if err := c.JoinRoom(roomID); err != nil {
		return fmt.Errorf("join room: %w", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)

	for {
		select {
		case update := <-events.RoomMembers:
			fmt.Printf("room %s members: %s\n", update.RoomID, strings.Join(update.Members, ", "))
		case left := <-events.MemberLeft:
			fmt.Printf("room %s: %s left\n", left.RoomID, left.Name)
		case env := <-events.Signal:
			fmt.Printf("%s from %s\n", env.Type, env.Sender)
		case <-events.EndCall:
			fmt.Println("call ended")
		case list := <-events.ClientList:
			fmt.Printf("online: %s\n", strings.Join(list, ", "))
		case msg := <-events.ServerError:
			fmt.Fprintf(os.Stderr, "server error: %s\n", msg)
		case err := <-events.Closed:
			if err != nil {
				return err
			}
			return nil
		case <-sig:
			c.LeaveRoom(roomID)
			return nil
		}
	}
}
