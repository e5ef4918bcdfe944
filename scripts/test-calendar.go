package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/icnasac/icna-events/internal/calendar"
	"github.com/icnasac/icna-events/internal/event"
)

func main() {
	normalizer, err := event.LoadNormalizer(event.DefaultTimezone)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading timezone: %v\n", err)
		os.Exit(1)
	}
	builder := event.NewBuilder(normalizer)

	// Sample events in the shapes the listing uses
	samples := []event.Raw{
		{
			Title:       "Community Iftar",
			Date:        "March 15, 2026, 7:00 PM – 9:00 PM PDT",
			Location:    "ICNA Center, Sacramento, CA",
			Description: "Open to all; bring a dish to share.",
			Link:        "https://icnasac.org/up-coming-events/",
		},
		{
			Title: "Youth Night",
			Date:  "March 20, 2026",
		},
		{
			Title: "Family Camp",
			Date:  "July 11, 2026, 10:00 AM PDT – Jul 13, 2026, 2:00 PM PDT",
		},
	}

	var records []*event.Record
	for _, raw := range samples {
		rec, err := builder.Build(raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error building %q: %v\n", raw.Title, err)
			os.Exit(1)
		}
		records = append(records, rec)
	}

	icsContent, err := calendar.Serialize(records, calendar.Options{
		Name:     calendar.DefaultName,
		Timezone: event.DefaultTimezone,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error serializing calendar: %v\n", err)
		os.Exit(1)
	}

	n, err := calendar.Validate(strings.NewReader(icsContent))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Generated calendar is invalid: %v\n", err)
		os.Exit(1)
	}

	filename := "test-icna-events.ics"
	if err := os.WriteFile(filename, []byte(icsContent), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✅ Generated calendar file: %s (%d events)\n\n", filename, n)
	fmt.Println("Test it by:")
	fmt.Println("1. Open the .ics file with your calendar app (double-click)")
	fmt.Println("2. Or import it into Google Calendar, Apple Calendar, or Outlook")
	fmt.Println("\nFile contents preview:")
	fmt.Println("---")
	fmt.Println(icsContent)
}
