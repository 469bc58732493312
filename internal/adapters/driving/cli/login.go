package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/altocloud-labs/icloud-cli/internal/core/domain"
)

var loginUsername string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and establish a session",
	Long: `Log in to the account and establish a session.

With --username the credential is (re)collected and stored; without it
the stored credential is reused. When the service requires a two-factor
verification code you are prompted for it interactively.`,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Discard the stored credential and session",
	RunE:  runLogout,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current session state",
	RunE:  runStatus,
}

var twoFACmd = &cobra.Command{
	Use:   "2fa [code]",
	Short: "Complete a pending login with a verification code",
	Long: `Complete the verification challenge non-interactively.

Runs the login with the stored credential and answers the challenge
with the given code. Useful for scripts; 'icloud login' does the same
interactively.`,
	Args: cobra.ExactArgs(1),
	RunE: run2FA,
}

func init() {
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "account name (email); prompts for the password")
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(twoFACmd)
}

func run2FA(cmd *cobra.Command, args []string) error {
	if authService == nil {
		return errors.New("authenticator not configured")
	}
	ctx := context.Background()

	if !authService.Requires2FA() {
		if _, err := authService.Login(ctx); err != nil && !errors.Is(err, domain.ErrChallengeRequired) {
			return err
		}
	}
	if !authService.Requires2FA() {
		cmd.Println("No verification challenge pending.")
		return nil
	}

	sess, err := authService.SubmitVerificationCode(ctx, args[0])
	if err != nil {
		return err
	}
	cmd.Printf("Verified. Session state: %s\n", sess.State)
	return nil
}

func runLogin(cmd *cobra.Command, _ []string) error {
	if authService == nil {
		return errors.New("authenticator not configured")
	}
	ctx := context.Background()

	if loginUsername != "" {
		password, err := promptPassword(cmd, loginUsername)
		if err != nil {
			return err
		}
		cred := domain.Credential{AccountName: loginUsername, Password: password}
		if existing, err := credentialStore.Load(ctx); err == nil {
			// Keep the client id stable across password changes.
			cred.ClientID = existing.ClientID
		}
		if err := credentialStore.Save(ctx, cred); err != nil {
			return fmt.Errorf("failed to store credential: %w", err)
		}
	}

	sess, err := authService.Login(ctx)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrChallengeRequired):
		sess, err = completeChallenge(ctx, cmd)
		if err != nil {
			return err
		}
	default:
		return err
	}

	cmd.Printf("Logged in. Session state: %s\n", sess.State)
	if sess.TrustedBrowser {
		cmd.Println("This client is trusted; future logins skip the verification code.")
	}
	return nil
}

// completeChallenge runs the interactive two-factor loop until the code
// is accepted or the attempt budget is spent.
func completeChallenge(ctx context.Context, cmd *cobra.Command) (domain.Session, error) {
	devices, err := authService.TrustedDevices(ctx)
	if err != nil {
		// The modern flow pushes the code without a device list.
		devices = nil
	}

	for {
		code, err := codePrompter.PromptCode(ctx, devices)
		if err != nil {
			return domain.Session{}, err
		}

		sess, err := authService.SubmitVerificationCode(ctx, code)
		switch {
		case err == nil:
			return sess, nil
		case errors.Is(err, domain.ErrInvalidVerificationCode):
			cmd.Println("Incorrect code, try again.")
		default:
			return domain.Session{}, err
		}
	}
}

func runLogout(cmd *cobra.Command, _ []string) error {
	if credentialStore == nil || sessionStore == nil {
		return errors.New("stores not configured")
	}
	ctx := context.Background()

	account := ""
	if cred, err := credentialStore.Load(ctx); err == nil {
		account = cred.AccountName
	}
	if err := credentialStore.Clear(ctx); err != nil {
		return err
	}
	if account != "" {
		if err := sessionStore.Clear(ctx, account); err != nil {
			return err
		}
	}
	cmd.Println("Logged out.")
	return nil
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if authService == nil {
		return errors.New("authenticator not configured")
	}

	sess := authService.Session()
	cmd.Printf("State: %s\n", sess.State)
	cmd.Printf("Trusted client: %v\n", sess.TrustedBrowser)
	if authService.Requires2FA() {
		cmd.Println("A verification challenge is pending; run 'icloud login'.")
	}
	if len(sess.WebServices) > 0 {
		cmd.Printf("Available services: %d\n", len(sess.WebServices))
	}
	return nil
}

// promptPassword reads the password without echo when stdin is a
// terminal, falling back to a plain line read otherwise.
func promptPassword(cmd *cobra.Command, username string) (string, error) {
	cmd.Printf("Password for %s: ", username)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		cmd.Println()
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// terminalPrompter asks for the verification code on the terminal.
type terminalPrompter struct{}

func (terminalPrompter) PromptCode(_ context.Context, devices []domain.TrustedDevice) (string, error) {
	if len(devices) > 0 {
		fmt.Fprintln(os.Stderr, "A verification code was sent to one of:")
		for _, d := range devices {
			name := d.Name
			if d.PhoneNumber != "" {
				name = fmt.Sprintf("%s (%s)", name, d.PhoneNumber)
			}
			fmt.Fprintf(os.Stderr, "  - %s\n", name)
		}
	}
	fmt.Fprint(os.Stderr, "Verification code: ")

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
