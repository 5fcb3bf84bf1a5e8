package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/claude/scanflow/internal/client"
	"github.com/claude/scanflow/internal/kv"
	"github.com/claude/scanflow/internal/mcp"
	"github.com/claude/scanflow/internal/tracker"
	"github.com/mark3labs/mcp-go/server"
)

func runLocal(ctx context.Context, cmd string, args []string, store kv.Store, log *slog.Logger) error {
	switch cmd {
	case "template":
		return printTemplate()
	case "status":
		w, err := workoutArg(cmd, args)
		if err != nil {
			return err
		}
		return printStatus(ctx, tracker.NewTracker(store, log), w)
	case "log":
		return logExercise(ctx, args, tracker.NewTracker(store, log))
	case "toggle":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		id := fs.String("exercise", "", "exercise id")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if _, ok := tracker.FindExercise(*id); !ok {
			return fmt.Errorf("unknown exercise %q", *id)
		}
		done, err := tracker.NewTracker(store, log).ToggleExercise(ctx, *id)
		if err != nil {
			return err
		}
		fmt.Printf("%s completed: %v\n", *id, done)
		return nil
	case "complete":
		w, err := workoutArg(cmd, args)
		if err != nil {
			return err
		}
		rec, err := tracker.NewAggregator(store, log).CompleteWorkout(ctx, w)
		if rec == nil {
			return err
		}
		fmt.Printf("Workout saved: %s, %d exercises, %d sets, volume %d\n",
			rec.DayName, rec.ExerciseCount(), rec.SetCount(), rec.TotalVolume)
		// The record is saved even when resetting the exercises failed.
		return err
	case "history":
		return printHistory(ctx, tracker.NewHistory(store, log))
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func runRemote(ctx context.Context, cmd string, args []string, serverURL, token string, log *slog.Logger) error {
	c := client.New(serverURL, token)
	switch cmd {
	case "chat":
		msg := strings.Join(args, " ")
		res, err := c.Chat(ctx, msg)
		if err != nil {
			return err
		}
		fmt.Println(res.Response)
		for path, v := range res.UpdatesApplied {
			fmt.Printf("  updated %s = %v\n", path, v)
		}
		return nil
	case "mcp":
		return server.ServeStdio(mcp.New(c, Version, log))
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func workoutArg(cmd string, args []string) (tracker.Workout, error) {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	day := fs.String("day", "", "workout day or id (e.g. monday, workout-2)")
	if err := fs.Parse(args); err != nil {
		return tracker.Workout{}, err
	}
	w, ok := tracker.FindWorkout(*day)
	if !ok {
		return tracker.Workout{}, fmt.Errorf("no workout scheduled for %q", *day)
	}
	return w, nil
}

func printTemplate() error {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, w := range tracker.WeekTemplate() {
		fmt.Fprintf(tw, "%s (%s)\n", w.Day, w.ID)
		for _, ex := range w.Exercises {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%d x %s\n", ex.ID, ex.Name, ex.MuscleGroup, ex.TargetSets, ex.TargetReps)
		}
	}
	return tw.Flush()
}

func printStatus(ctx context.Context, t *tracker.Tracker, w tracker.Workout) error {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s (%s)\n", w.Day, w.ID)
	for _, st := range t.Status(ctx, w) {
		mark := " "
		if st.Completed {
			mark = "x"
		}
		fmt.Fprintf(tw, "  [%s]\t%s\t%s\n", mark, st.Exercise.ID, st.Exercise.Name)
	}
	return tw.Flush()
}

// logExercise records sets given as "<weight>x<reps>" pairs, resizing the
// exercise's set list to match.
func logExercise(ctx context.Context, args []string, t *tracker.Tracker) error {
	fs := flag.NewFlagSet("log", flag.ContinueOnError)
	id := fs.String("exercise", "", "exercise id")
	setsArg := fs.String("sets", "", "comma-separated sets, e.g. 80x10,80x8")
	if err := fs.Parse(args); err != nil {
		return err
	}
	ex, ok := tracker.FindExercise(*id)
	if !ok {
		return fmt.Errorf("unknown exercise %q", *id)
	}
	if *setsArg == "" {
		return errors.New("-sets is required")
	}
	entries := strings.Split(*setsArg, ",")

	sets := t.Start(ex)
	for n := len(sets); n < len(entries); n++ {
		if err := t.AddSet(ctx, ex.ID); err != nil {
			return err
		}
	}
	for n := len(sets); n > len(entries); n-- {
		if err := t.RemoveSet(ctx, ex.ID); err != nil {
			return err
		}
	}

	for i, e := range entries {
		weight, reps, ok := strings.Cut(strings.TrimSpace(e), "x")
		if !ok {
			return fmt.Errorf("set %d: %q is not <weight>x<reps>", i+1, e)
		}
		if err := t.RecordSet(ctx, ex.ID, i, tracker.FieldWeight, weight); err != nil {
			return err
		}
		if err := t.RecordSet(ctx, ex.ID, i, tracker.FieldReps, reps); err != nil {
			return err
		}
	}

	if t.IsExerciseComplete(ex.ID) {
		fmt.Printf("%s complete: %d sets saved\n", ex.Name, len(t.Sets(ex.ID)))
	} else {
		fmt.Printf("%s not complete: every set needs a weight and reps\n", ex.Name)
	}
	return nil
}

func printHistory(ctx context.Context, h *tracker.History) error {
	records, err := h.Load(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No workouts yet.")
		return nil
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tDAY\tEXERCISES\tSETS\tVOLUME")
	for _, r := range records {
		date := r.Date
		if t := r.Time(); !t.IsZero() {
			date = t.Local().Format("Mon Jan 2 2006 15:04")
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\n", date, r.DayName, r.ExerciseCount(), r.SetCount(), r.TotalVolume)
	}
	return tw.Flush()
}
