// Command squad-balance balances a roster file offline and prints the groups.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/google/uuid"
	app "github.com/okian/squad/internal/app"
	"github.com/okian/squad/internal/domain/model"
	"github.com/okian/squad/pkg/logger"
)

var errUsage = errors.New("usage")

type options struct {
	rosterPath string
	game       string
	size       int
	seed       uint64
	factor     int
	complete   bool
	members    string
	min        int
	max        int
	verbose    bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("squad-balance", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.rosterPath, "roster", "", "JSON roster file (required)")
	fs.StringVar(&o.game, "game", "", "activity name or id (required)")
	fs.IntVar(&o.size, "size", 0, "target group size (required)")
	fs.Uint64Var(&o.seed, "seed", 0, "random seed; 0 uses entropy")
	fs.IntVar(&o.factor, "refinement", 2, "refinement attempt multiplier")
	fs.BoolVar(&o.complete, "complete", false, "complete one group instead of splitting the roster")
	fs.StringVar(&o.members, "members", "", "comma separated tags already in the group (with -complete)")
	fs.IntVar(&o.min, "min", 0, "lowest acceptable group rating (with -complete)")
	fs.IntVar(&o.max, "max", 0, "highest acceptable group rating (with -complete)")
	fs.BoolVar(&o.verbose, "verbose", false, "log engine decisions")
	if err := fs.Parse(args); err != nil {
		return o, err
	}

	switch {
	case o.rosterPath == "":
		return o, fmt.Errorf("%w: -roster is required", errUsage)
	case o.game == "":
		return o, fmt.Errorf("%w: -game is required", errUsage)
	case o.size < 1:
		return o, fmt.Errorf("%w: -size must be positive", errUsage)
	}
	return o, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	o, err := parseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}

	if err := logger.Init(logger.WithWriter(os.Stderr)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	level := "warn"
	if o.verbose {
		level = "debug"
	}
	_ = logger.SetLevelString(level)

	if err := run(ctx, o, os.Stdout); err != nil {
		os.Stderr.WriteString("squad-balance: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run(ctx context.Context, o options, stdout io.Writer) error {
	svc := app.New(
		app.WithLogger(logger.GetOrNop()),
		app.WithRosterPath(o.rosterPath),
		app.WithRandomSeed(o.seed),
		app.WithRefinementFactor(o.factor),
		app.WithMaxGroupSize(o.size),
	)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	activity, err := findActivity(ctx, svc, o.game)
	if err != nil {
		return err
	}

	if !o.complete {
		groups, err := svc.GenerateGroups(ctx, app.GroupRequest{ActivityID: activity.ID, Size: o.size})
		if err != nil {
			return err
		}
		return printGroups(stdout, groups)
	}

	members, candidates, err := splitByTags(ctx, svc, activity, o.members)
	if err != nil {
		return err
	}
	result, err := svc.CompleteGroup(ctx, app.CompletionRequest{
		ActivityID:   activity.ID,
		Name:         "Group",
		Size:         o.size,
		MemberIDs:    members,
		CandidateIDs: candidates,
		Min:          o.min,
		Max:          o.max,
	})
	if err != nil {
		return err
	}
	if err := printGroups(stdout, []*model.Group{result.Group}); err != nil {
		return err
	}
	verdict := "within"
	if !result.InRange {
		verdict = "closest to"
	}
	_, err = fmt.Fprintf(stdout, "%s [%d, %d]\n", verdict, o.min, o.max)
	return err
}

// findActivity matches by id first, then by name ignoring case.
func findActivity(ctx context.Context, svc *app.Service, key string) (model.Activity, error) {
	activities, err := svc.ListActivities(ctx)
	if err != nil {
		return model.Activity{}, err
	}
	if id, err := uuid.Parse(key); err == nil {
		for _, a := range activities {
			if a.ID == id {
				return a, nil
			}
		}
	}
	for _, a := range activities {
		if strings.EqualFold(a.Name, key) {
			return a, nil
		}
	}
	return model.Activity{}, fmt.Errorf("unknown game %q", key)
}

// splitByTags resolves member tags and returns every other participant rated
// for activity as a candidate.
func splitByTags(ctx context.Context, svc *app.Service, activity model.Activity, tags string) (members, candidates []uuid.UUID, err error) {
	wanted := make(map[string]bool)
	for _, tag := range strings.Split(tags, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			wanted[strings.ToLower(tag)] = true
		}
	}

	participants, err := svc.ListParticipants(ctx)
	if err != nil {
		return nil, nil, err
	}
	for _, p := range participants {
		key := strings.ToLower(p.Tag)
		switch {
		case wanted[key]:
			members = append(members, p.ID())
			delete(wanted, key)
		case p.IsRated(activity):
			candidates = append(candidates, p.ID())
		}
	}
	for tag := range wanted {
		return nil, nil, fmt.Errorf("unknown member %q", tag)
	}
	return members, candidates, nil
}

func printGroups(w io.Writer, groups []*model.Group) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, g := range groups {
		fmt.Fprintf(tw, "%s\trating %d\t%d/%d\n", g.Name(), g.Rating(), g.CurrentSize(), g.TargetSize())
		for _, p := range g.Members() {
			fmt.Fprintf(tw, "  %s\t%d\t%s\n", p.Tag, p.Rating(g.Activity()), p.FullName())
		}
	}
	return tw.Flush()
}
