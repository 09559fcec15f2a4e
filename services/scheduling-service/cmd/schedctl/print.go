package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/client"
	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/model"
)

func printAvailability(out io.Writer, av model.Availability) {
	fmt.Fprintf(out, "%s on %s (%s)\n", av.PractitionerID, av.Date, av.DayOfWeek)
	if !av.HasSchedule {
		fmt.Fprintln(out, "No schedule on this day.")
		return
	}
	printSlots(out, av.Slots)
	if len(av.OccupiedAppointments) > 0 {
		fmt.Fprintln(out)
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "BOOKED\tPET\tSERVICE\tSTATUS")
		for _, o := range av.OccupiedAppointments {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", o.Time, o.SubjectName, o.ServiceName, o.Status)
		}
		_ = tw.Flush()
	}
}

func printSlots(out io.Writer, slots []model.Slot) {
	if len(slots) == 0 {
		fmt.Fprintln(out, "No slots.")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tEND\tSTATUS")
	for _, s := range slots {
		state := "free"
		if !s.Available {
			state = s.BlockingReason
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Time, s.EndTime, state)
	}
	_ = tw.Flush()
}

func printAppointments(out io.Writer, appts []model.Appointment) {
	if len(appts) == 0 {
		fmt.Fprintln(out, "No appointments.")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tID\tPET\tSTATUS\tEMERGENCY")
	for _, a := range appts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", a.Time, a.ID, a.SubjectID, a.Status, a.IsEmergency)
	}
	_ = tw.Flush()
}

func printAppointment(out io.Writer, v client.AppointmentView) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\t%s\n", v.ID)
	fmt.Fprintf(tw, "When\t%s %s (%d min)\n", v.Date, v.Time, v.DurationMinutes)
	fmt.Fprintf(tw, "Practitioner\t%s\n", v.PractitionerID)
	fmt.Fprintf(tw, "Pet\t%s\n", v.SubjectID)
	fmt.Fprintf(tw, "Status\t%s\n", v.Status)
	if v.CancellationReason != "" {
		fmt.Fprintf(tw, "Cancelled because\t%s\n", v.CancellationReason)
	}
	events := make([]string, 0, len(v.AllowedEvents))
	for _, e := range v.AllowedEvents {
		events = append(events, string(e))
	}
	fmt.Fprintf(tw, "Next\t%s\n", strings.Join(events, ", "))
	_ = tw.Flush()
}
