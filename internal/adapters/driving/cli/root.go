package cli

import (
	"github.com/spf13/cobra"

	configfile "github.com/altocloud-labs/icloud-cli/internal/adapters/driven/config/file"
	storagefile "github.com/altocloud-labs/icloud-cli/internal/adapters/driven/storage/file"
	"github.com/altocloud-labs/icloud-cli/internal/auth"
	"github.com/altocloud-labs/icloud-cli/internal/core/ports/driven"
	"github.com/altocloud-labs/icloud-cli/internal/core/ports/driving"
	"github.com/altocloud-labs/icloud-cli/internal/logger"
	"github.com/altocloud-labs/icloud-cli/internal/retry"
	"github.com/altocloud-labs/icloud-cli/internal/services"
	"github.com/altocloud-labs/icloud-cli/internal/services/calendar"
	"github.com/altocloud-labs/icloud-cli/internal/services/contacts"
	"github.com/altocloud-labs/icloud-cli/internal/services/reminders"
	"github.com/altocloud-labs/icloud-cli/internal/transport"
)

// version is set at build time via -ldflags.
var version = "dev"

// Wired dependencies. Populated by wire() on first command run; tests
// inject their own.
var (
	authService      driving.Authenticator
	remindersService *reminders.Service
	calendarService  *calendar.Service
	contactsService  *contacts.Service
	credentialStore  driven.CredentialStore
	sessionStore     driven.SessionStore
	codePrompter     driven.CodePrompter
)

var (
	flagVerbose   bool
	flagConfigDir string
)

var rootCmd = &cobra.Command{
	Use:   "icloud",
	Short: "Command-line client for the iCloud web services",
	Long: `icloud talks to the iCloud web services from the terminal:
log in (including two-factor verification), then work with reminders,
calendar events and contacts.

Credentials and session tokens are stored under ~/.icloud with
owner-only permissions. A trusted session survives restarts, so the
verification challenge is only needed once per client.`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		logger.SetVerbose(flagVerbose)
		return wire()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "config directory (default ~/.icloud)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// wire builds the full dependency graph from the config file. It is a
// no-op when the services are already populated (tests).
func wire() error {
	if authService != nil {
		return nil
	}

	configStore, err := configfile.NewConfigStore(flagConfigDir)
	if err != nil {
		return err
	}
	cfg, err := configStore.Load()
	if err != nil {
		return err
	}

	creds, err := storagefile.NewCredentialStore(flagConfigDir)
	if err != nil {
		return err
	}
	sessions, err := storagefile.NewSessionStore(flagConfigDir)
	if err != nil {
		return err
	}

	tp := transport.NewClient(cfg.RequestTimeout)
	policy := retry.Policy{
		BaseDelay:      cfg.Retry.BaseDelay,
		MaxDelay:       cfg.Retry.MaxDelay,
		MaxAttempts:    cfg.Retry.MaxAttempts,
		JitterFraction: retry.DefaultPolicy().JitterFraction,
	}

	a := auth.New(auth.Config{
		AuthEndpoint:    cfg.Auth.AuthEndpoint,
		SetupEndpoint:   cfg.Auth.SetupEndpoint,
		FreshnessWindow: cfg.Auth.FreshnessWindow,
		Retry:           policy,
	}, tp, creds, sessions)

	authService = a
	credentialStore = creds
	sessionStore = sessions
	codePrompter = &terminalPrompter{}
	remindersService = reminders.NewService(
		services.NewCaller(services.Reminders, tp, a, policy, cfg.Timezone))
	calendarService = calendar.NewService(
		services.NewCaller(services.Calendar, tp, a, policy, cfg.Timezone))
	contactsService = contacts.NewService(
		services.NewCaller(services.Contacts, tp, a, policy, cfg.Timezone))
	return nil
}
