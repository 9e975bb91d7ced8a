package main

import (
	"bufio"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"duochat/chat"
	"duochat/config"
	"duochat/db"
	"duochat/registry"
	"duochat/server"
	"duochat/store"
	"duochat/users"
)

var cfg = config.Load()

var rootCmd = &cobra.Command{
	Use:          "duochat",
	Short:        "Two-party text chat server and client",
	Long:         "duochat runs a chat server where every conversation is between exactly two users, and a terminal client that talks to it.",
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chat server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&cfg.Host, "host", cfg.Host, "Address to listen on")
	serveCmd.Flags().IntVar(&cfg.Port, "port", cfg.Port, "TCP port to listen on")
	serveCmd.Flags().StringVar(&cfg.HTTPAddr, "http", cfg.HTTPAddr, "Address for /ws, /metrics and /health (empty disables)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openStores returns the user and chat stores for the configured backend and
// a function releasing them.
func openStores() (store.UserStore, store.ChatStore, func(), error) {
	switch cfg.Store {
	case "file":
		files := store.NewFile(cfg.UsersPath, cfg.ChatsPath)
		return files, files, func() {}, nil
	case "sqlite":
		database, err := db.New(cfg.DBPath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		return database, database, func() { database.Close() }, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown store %q (want file or sqlite)", cfg.Store)
}

func serve() error {
	userStore, chatStore, closeStores, err := openStores()
	if err != nil {
		return err
	}
	defer closeStores()

	userDir, err := users.NewDirectory(userStore)
	if err != nil {
		return err
	}
	if cfg.AdminLogin != "" {
		if err := userDir.EnsureAdmin(cfg.AdminLogin, cfg.AdminPassword); err != nil {
			return fmt.Errorf("failed to seed admin %s: %w", cfg.AdminLogin, err)
		}
		log.Printf("Admin account %s is ready", cfg.AdminLogin)
	}

	reg := registry.New()
	chatDir, err := chat.NewDirectory(chatStore, reg)
	if err != nil {
		return err
	}
	log.Printf("Loaded %d users and %d chats from %s store", userDir.Count(), chatDir.Count(), cfg.Store)

	srvConfig := &server.ServerConfig{
		Host:         cfg.Host,
		Port:         cfg.Port,
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		KickDuration: time.Duration(cfg.KickDuration) * time.Second,
		HTTPAddr:     cfg.HTTPAddr,
	}

	srv := server.New(srvConfig, userDir, chatDir, reg)

	// Start control socket for management commands
	if cfg.ControlSocket != "" {
		go startControlSocket(srv)
		defer os.Remove(cfg.ControlSocket)
	}

	// Handle signals for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("Received signal %v, shutting down...", sig)
		srv.Shutdown("maintenance")
	}()

	return srv.Start()
}

func startControlSocket(srv *server.Server) {
	// Remove existing socket file
	os.Remove(cfg.ControlSocket)

	listener, err := net.Listen("unix", cfg.ControlSocket)
	if err != nil {
		log.Printf("Failed to create control socket: %v", err)
		return
	}
	defer listener.Close()

	log.Printf("Control socket listening on %s", cfg.ControlSocket)

	for {
		conn, err := listener.Accept()
		if err != nil {
			continue
		}

		go handleControlCommand(srv, conn)
	}
}

// handleControlCommand serves one request: "stats" or "shutdown|reason".
func handleControlCommand(srv *server.Server, conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	if err != nil {
		return
	}

	line = strings.TrimSpace(line)
	parts := strings.SplitN(line, "|", 2)

	switch parts[0] {
	case "stats":
		conn.Write([]byte("OK|" + srv.GetStats() + "\n"))

	case "shutdown":
		reason := "maintenance"
		if len(parts) == 2 && parts[1] != "" {
			reason = parts[1]
		}

		conn.Write([]byte("OK|Shutting down\n"))
		log.Printf("Shutdown requested: reason=%s", reason)
		srv.Shutdown(reason)

	default:
		conn.Write([]byte("ERROR|Unknown command\n"))
	}
}
