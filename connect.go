package main

import (
	"net"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"duochat/client"
)

var (
	connectHost = cfg.Host
	connectPort = cfg.Port
)

// connectCmd relays the terminal to a running server.
var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect to a chat server from the terminal",
	Long:  "Connect to a chat server, send each line typed on stdin as one message and print everything the server sends.",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := client.Connect(net.JoinHostPort(connectHost, strconv.Itoa(connectPort)))
		if err != nil {
			return err
		}
		defer c.Disconnect()

		return c.Run(os.Stdin, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)
	connectCmd.Flags().StringVar(&connectHost, "host", connectHost, "Server host")
	connectCmd.Flags().IntVar(&connectPort, "port", connectPort, "Server port")
}
