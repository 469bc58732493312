package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/altocloud-labs/icloud-cli/internal/core/domain"
)

var contactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "Work with the contact list",
}

var contactsListJSON bool

var contactsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all contacts",
	RunE:  runContactsList,
}

var contactsShowCmd = &cobra.Command{
	Use:   "show [contact-id]",
	Short: "Show one contact",
	Args:  cobra.ExactArgs(1),
	RunE:  runContactsShow,
}

var contactsMeCmd = &cobra.Command{
	Use:   "me",
	Short: "Show the account owner's contact card",
	RunE:  runContactsMe,
}

func init() {
	contactsListCmd.Flags().BoolVar(&contactsListJSON, "json", false, "output as JSON")

	contactsCmd.AddCommand(contactsListCmd)
	contactsCmd.AddCommand(contactsShowCmd)
	contactsCmd.AddCommand(contactsMeCmd)
	rootCmd.AddCommand(contactsCmd)
}

func runContactsList(cmd *cobra.Command, _ []string) error {
	if contactsService == nil {
		return errors.New("contacts service not configured")
	}

	all, err := contactsService.All(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list contacts: %w", err)
	}

	if contactsListJSON {
		return printJSON(cmd, all)
	}
	if len(all) == 0 {
		cmd.Println("No contacts.")
		return nil
	}
	for _, c := range all {
		line := fmt.Sprintf("  [%s] %s", c.ID, c.DisplayName())
		if len(c.Emails) > 0 {
			line += "  <" + c.Emails[0] + ">"
		}
		cmd.Println(line)
	}
	return nil
}

func runContactsShow(cmd *cobra.Command, args []string) error {
	if contactsService == nil {
		return errors.New("contacts service not configured")
	}

	contact, err := contactsService.ByID(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("failed to fetch contact: %w", err)
	}
	printContact(cmd, contact)
	return nil
}

func runContactsMe(cmd *cobra.Command, _ []string) error {
	if contactsService == nil {
		return errors.New("contacts service not configured")
	}

	me, err := contactsService.Me(context.Background())
	if err != nil {
		return fmt.Errorf("failed to fetch owner card: %w", err)
	}
	printContact(cmd, me)
	return nil
}

func printContact(cmd *cobra.Command, c domain.Contact) {
	cmd.Printf("%s\n", c.DisplayName())
	if c.Company != "" {
		cmd.Printf("  Company: %s\n", c.Company)
	}
	if len(c.Emails) > 0 {
		cmd.Printf("  Email:   %s\n", strings.Join(c.Emails, ", "))
	}
	if len(c.Phones) > 0 {
		cmd.Printf("  Phone:   %s\n", strings.Join(c.Phones, ", "))
	}
}
