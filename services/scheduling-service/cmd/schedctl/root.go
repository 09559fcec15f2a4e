package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/client"
	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/model"
)

type globalOptions struct {
	server         string
	token          string
	userID         string
	role           string
	practitionerID string
	timeout        time.Duration
}

func (o *globalOptions) actor() (model.Actor, error) {
	actor := model.Actor{
		UserID:         strings.TrimSpace(o.userID),
		Role:           model.Role(strings.ToLower(strings.TrimSpace(o.role))),
		PractitionerID: strings.TrimSpace(o.practitionerID),
	}
	if o.token == "" && (actor.UserID == "" || !actor.Role.Valid()) {
		return model.Actor{}, fmt.Errorf("either --token or --user with a valid --role is required")
	}
	return actor, nil
}

func (o *globalOptions) client() (*client.Client, model.Actor, error) {
	actor, err := o.actor()
	if err != nil {
		return nil, model.Actor{}, err
	}
	return client.New(client.Config{BaseURL: o.server, Token: o.token, Actor: actor, Timeout: o.timeout}), actor, nil
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "schedctl",
		Short: "Veterinary clinic scheduling client",
		Long: `schedctl queries availability, books appointments and drives their lifecycle
against a running scheduling service.

Examples:
  schedctl availability vet-1 --date 2026-03-02 --user u-1 --role receptionist
  schedctl book --subject pet-1 --service svc-1 --practitioner vet-1 --date 2026-03-02 --time 09:30 --reason "annual checkup"
  schedctl transition 0b1c... confirm --user u-9 --role veterinarian --practitioner-id vet-1`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.server, "server", envOr("SCHEDCTL_SERVER", "http://localhost:8080"), "scheduling service base URL")
	flags.StringVar(&opts.token, "token", os.Getenv("SCHEDCTL_TOKEN"), "bearer token (overrides --user/--role)")
	flags.StringVar(&opts.userID, "user", os.Getenv("SCHEDCTL_USER"), "acting user id")
	flags.StringVar(&opts.role, "role", os.Getenv("SCHEDCTL_ROLE"), "acting role: owner, veterinarian, receptionist, auxiliary, admin")
	flags.StringVar(&opts.practitionerID, "practitioner-id", os.Getenv("SCHEDCTL_PRACTITIONER_ID"), "practitioner id of a veterinarian account")
	flags.DurationVar(&opts.timeout, "timeout", 10*time.Second, "per-request timeout")

	root.AddCommand(
		newAvailabilityCmd(opts),
		newDaySheetCmd(opts),
		newBookCmd(opts),
		newTransitionCmd(opts),
		newGetCmd(opts),
	)
	return root
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func parseDate(raw string) (model.Date, error) {
	if raw == "" || raw == "today" {
		return model.DateOf(time.Now()), nil
	}
	if raw == "tomorrow" {
		return model.DateOf(time.Now()).AddDays(1), nil
	}
	return model.ParseDate(raw)
}
