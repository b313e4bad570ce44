package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"roomboard/internal/apitest"
	"roomboard/internal/config"
)

var (
	devAddr  string
	devUsers []string
)

// devServerCmd serves the in-memory API so the client can be tried without a backend.
var devServerCmd = &cobra.Command{
	Use:   "dev-server",
	Short: "Run an in-memory rooms/boards API for local testing",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := config.ParseLevel(getenv("ROOMBOARD_LOG_LEVEL", "info"))
		if err != nil {
			return err
		}
		log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
		fake := apitest.New(apitest.WithLogger(log))
		for _, name := range devUsers {
			id := fake.AddUser(name, "")
			tok, err := fake.Session(id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "# %s\nROOMBOARD_SESSION=%s\n", name, tok)
		}

		srv := &http.Server{Addr: devAddr, Handler: fake,
			ReadTimeout: 15 * time.Second, ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout: 30 * time.Second, IdleTimeout: 120 * time.Second}

		errc := make(chan error, 1)
		go func() {
			log.Info("listening", "addr", devAddr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) && err != nil {
				errc <- err
			}
			close(errc)
		}()

		select {
		case err := <-errc:
			if err != nil {
				log.Error("listen", "err", err)
				return err
			}
			return nil
		case <-cmd.Context().Done():
		}
		log.Info("shutting down")
		ctxSh, cancelSh := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelSh()
		if err := srv.Shutdown(ctxSh); err != nil {
			log.Error("shutdown", "err", err)
			return err
		}
		return nil
	},
}

func getenv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func init() {
	devServerCmd.Flags().StringVar(&devAddr, "addr", getenv("ADDR", ":5000"), "listen address")
	devServerCmd.Flags().StringSliceVar(&devUsers, "user", []string{"demo"}, "account to create and print a session for (repeatable)")
	rootCmd.AddCommand(devServerCmd)
}
