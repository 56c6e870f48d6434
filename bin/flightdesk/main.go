package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/jamilsonokay/iam-ai-chatbot/internal/profile"
	"github.com/jamilsonokay/iam-ai-chatbot/server"
	"github.com/jamilsonokay/iam-ai-chatbot/server/agent/tool"
	"github.com/jamilsonokay/iam-ai-chatbot/server/auth"
	"github.com/jamilsonokay/iam-ai-chatbot/server/mcp"
	"github.com/jamilsonokay/iam-ai-chatbot/store"
	"github.com/jamilsonokay/iam-ai-chatbot/store/db"
)

const version = "0.1.0"

var (
	rootCmd = &cobra.Command{
		Use:   "flightdesk",
		Short: `A flight booking assistant that streams model turns and runs booking tools on the user's behalf.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			instanceProfile, err := loadProfile()
			if err != nil {
				return err
			}
			return serve(instanceProfile)
		},
	}

	tokenCmd = &cobra.Command{
		Use:   "token",
		Short: "Mint an access token for local development",
		RunE: func(cmd *cobra.Command, _ []string) error {
			instanceProfile, err := loadProfile()
			if err != nil {
				return err
			}
			userID, _ := cmd.Flags().GetString("user")
			userName, _ := cmd.Flags().GetString("name")
			ttl, _ := cmd.Flags().GetDuration("ttl")
			if userID == "" {
				return errors.New("--user is required")
			}
			token, err := auth.GenerateAccessToken(userID, userName, time.Now().Add(ttl), []byte(instanceProfile.Secret))
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}

	mcpCmd = &cobra.Command{
		Use:   "mcp",
		Short: "Serve the booking tools over MCP on stdin/stdout",
		RunE: func(cmd *cobra.Command, _ []string) error {
			instanceProfile, err := loadProfile()
			if err != nil {
				return err
			}
			userID, _ := cmd.Flags().GetString("user")
			userName, _ := cmd.Flags().GetString("name")

			storeInstance, err := openStore(context.Background(), instanceProfile)
			if err != nil {
				return err
			}
			defer storeInstance.Close()

			s, err := server.NewServer(instanceProfile, storeInstance)
			if err != nil {
				return err
			}
			mcpServer, err := mcp.NewServer(s.Executor, tool.Session{UserID: userID, UserName: userName}, instanceProfile.Version)
			if err != nil {
				return err
			}
			slog.Info("serving tools over MCP", "user", userID)
			return mcpServer.ServeStdio()
		},
	}
)

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("port", 8081)
	viper.SetDefault("ai-base-url", "https://openrouter.ai/api/v1")
	viper.SetDefault("ai-model", "openai/gpt-4o-mini")

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 8081, "port of server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver")
	rootCmd.PersistentFlags().String("dsn", "", "database source name(aka. DSN)")
	rootCmd.PersistentFlags().String("secret", "", "secret used to sign access tokens")
	rootCmd.PersistentFlags().String("ai-base-url", "https://openrouter.ai/api/v1", "OpenAI-compatible endpoint")
	rootCmd.PersistentFlags().String("ai-model", "openai/gpt-4o-mini", "chat model")
	rootCmd.PersistentFlags().String("embedding-model", "", "embedding model, enables transcript search")
	rootCmd.PersistentFlags().Int("max-steps", profile.DefaultMaxSteps, "maximum model steps per turn")

	for _, key := range []string{"mode", "addr", "port", "data", "driver", "dsn", "secret", "ai-base-url", "ai-model", "embedding-model", "max-steps"} {
		if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(key)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("flightdesk")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	// Keys are also read from the variable names the hosted deployment already uses.
	if err := viper.BindEnv("ai-api-key", "FLIGHTDESK_AI_API_KEY", "OPENROUTER_API_KEY", "OPENAI_API_KEY"); err != nil {
		panic(err)
	}
	if err := viper.BindEnv("openweathermap-api-key", "FLIGHTDESK_OPENWEATHERMAP_API_KEY", "OPENWEATHERMAP_API_KEY"); err != nil {
		panic(err)
	}

	tokenCmd.Flags().String("user", "", "user id to put in the token")
	tokenCmd.Flags().String("name", "", "display name to put in the token")
	tokenCmd.Flags().Duration("ttl", auth.AccessTokenDuration, "token lifetime")
	mcpCmd.Flags().String("user", "", "user id tools run as; empty means signed out")
	mcpCmd.Flags().String("name", "", "display name tools run as")
	rootCmd.AddCommand(tokenCmd, mcpCmd)
}

func loadProfile() (*profile.Profile, error) {
	instanceProfile := &profile.Profile{
		Mode:                 viper.GetString("mode"),
		Addr:                 viper.GetString("addr"),
		Port:                 viper.GetInt("port"),
		Data:                 viper.GetString("data"),
		Driver:               viper.GetString("driver"),
		DSN:                  viper.GetString("dsn"),
		Version:              version,
		Secret:               viper.GetString("secret"),
		AIBaseURL:            viper.GetString("ai-base-url"),
		AIAPIKey:             viper.GetString("ai-api-key"),
		AIModel:              viper.GetString("ai-model"),
		EmbeddingModel:       viper.GetString("embedding-model"),
		MaxSteps:             viper.GetInt("max-steps"),
		OpenWeatherMapAPIKey: viper.GetString("openweathermap-api-key"),
	}
	if err := instanceProfile.Validate(); err != nil {
		return nil, err
	}
	slog.SetDefault(newLogger(os.Stderr, instanceProfile.IsDev()))
	return instanceProfile, nil
}

func openStore(ctx context.Context, instanceProfile *profile.Profile) (*store.Store, error) {
	dbDriver, err := db.NewDBDriver(instanceProfile)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	storeInstance := store.New(dbDriver, instanceProfile)
	if err := storeInstance.Migrate(ctx); err != nil {
		return nil, errors.Wrap(err, "failed to migrate")
	}
	return storeInstance, nil
}

func serve(instanceProfile *profile.Profile) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storeInstance, err := openStore(ctx, instanceProfile)
	if err != nil {
		return err
	}
	s, err := server.NewServer(instanceProfile, storeInstance)
	if err != nil {
		return errors.Wrap(err, "failed to create server")
	}
	printGreetings(instanceProfile)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(s.Start)
	g.Go(func() error {
		<-gctx.Done()
		s.Shutdown(context.Background())
		return nil
	})
	return g.Wait()
}

func printGreetings(instanceProfile *profile.Profile) {
	fmt.Printf("flightdesk %s started in %s mode\n", instanceProfile.Version, instanceProfile.Mode)
	if instanceProfile.Addr == "" {
		fmt.Printf("Listening on port %d\n", instanceProfile.Port)
	} else {
		fmt.Printf("Listening on %s:%d\n", instanceProfile.Addr, instanceProfile.Port)
	}
	fmt.Printf("Data directory: %s\n", instanceProfile.Data)
}

func main() {
	// A missing .env is fine.
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
