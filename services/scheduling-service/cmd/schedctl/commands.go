package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/booking"
	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/model"
)

func newAvailabilityCmd(opts *globalOptions) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:     "availability <practitioner-id>",
		Aliases: []string{"slots"},
		Short:   "Show a practitioner's slots for a date",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := opts.client()
			if err != nil {
				return err
			}
			d, err := parseDate(date)
			if err != nil {
				return err
			}
			av, err := c.Resolve(cmd.Context(), args[0], d)
			if err != nil {
				return err
			}
			printAvailability(cmd.OutOrStdout(), av)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "today", "date as YYYY-MM-DD, today or tomorrow")
	return cmd
}

func newDaySheetCmd(opts *globalOptions) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "day-sheet <practitioner-id>",
		Short: "List a practitioner's appointments for a date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := opts.client()
			if err != nil {
				return err
			}
			d, err := parseDate(date)
			if err != nil {
				return err
			}
			sheet, err := c.DaySheet(cmd.Context(), args[0], d)
			if err != nil {
				return err
			}
			printAppointments(cmd.OutOrStdout(), sheet.Appointments)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "today", "date as YYYY-MM-DD, today or tomorrow")
	return cmd
}

type bookFlags struct {
	subject, service, practitioner, date, at, reason string
	emergency                                        bool
}

func newBookCmd(opts *globalOptions) *cobra.Command {
	var f bookFlags
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Book an appointment through the booking wizard",
		Long: `book walks the booking wizard: pet, service, veterinarian and date, slot, confirmation.
Without --time it stops after listing the slots of the chosen day.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, actor, err := opts.client()
			if err != nil {
				return err
			}
			d, err := parseDate(f.date)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			ctx := cmd.Context()
			wf := booking.NewWorkflow(c, c, nil)

			s := booking.New()
			steps := []booking.Input{
				booking.SubjectInput{SubjectID: f.subject},
				booking.ServiceInput{ServiceID: f.service},
				booking.SlotInput{PractitionerID: f.practitioner, Date: d},
			}
			for _, in := range steps {
				if s, err = booking.Advance(s, in); err != nil {
					return err
				}
			}
			if s, err = wf.LoadSlots(ctx, s); err != nil {
				return err
			}
			if f.at == "" {
				printSlots(out, s.Slots)
				return nil
			}
			if s, err = booking.Advance(s, booking.SlotInput{Time: f.at}); err != nil {
				return err
			}
			if s, err = booking.Advance(s, booking.ConfirmInput{Reason: f.reason, IsEmergency: f.emergency}); err != nil {
				return err
			}

			s, err = wf.Submit(ctx, s, actor)
			if err != nil {
				if model.IsConflict(err) && s.Step == booking.StepSlot {
					fmt.Fprintln(out, "That slot was just taken. Current slots:")
					printSlots(out, s.Slots)
				}
				return err
			}
			fmt.Fprintf(out, "Booked %s: %s %s with %s (%s)\n",
				s.Appointment.ID, s.Appointment.Date, s.Appointment.Time, s.Appointment.PractitionerID, s.Appointment.Status)
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.subject, "subject", "", "pet id")
	fl.StringVar(&f.service, "service", "", "service id")
	fl.StringVar(&f.practitioner, "practitioner", "", "veterinarian id")
	fl.StringVar(&f.date, "date", "today", "date as YYYY-MM-DD, today or tomorrow")
	fl.StringVar(&f.at, "time", "", "slot start as HH:mm")
	fl.StringVar(&f.reason, "reason", "", "reason for the visit")
	fl.BoolVar(&f.emergency, "emergency", false, "flag the visit as an emergency")
	_ = cmd.MarkFlagRequired("subject")
	_ = cmd.MarkFlagRequired("service")
	_ = cmd.MarkFlagRequired("practitioner")
	return cmd
}

func newTransitionCmd(opts *globalOptions) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "transition <appointment-id> <event>",
		Short: "Apply a lifecycle event: confirm, start_attendance, complete, mark_no_show, cancel",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := opts.client()
			if err != nil {
				return err
			}
			ev, err := model.ParseEvent(args[1])
			if err != nil {
				return err
			}
			view, err := c.Transition(cmd.Context(), args[0], ev, reason)
			if err != nil {
				return err
			}
			printAppointment(cmd.OutOrStdout(), view)
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "cancellation reason")
	return cmd
}

func newGetCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <appointment-id>",
		Short: "Show an appointment and the events the caller may apply",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := opts.client()
			if err != nil {
				return err
			}
			view, err := c.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printAppointment(cmd.OutOrStdout(), view)
			return nil
		},
	}
}
