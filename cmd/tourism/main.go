// Command tourism is the device-side entry point: a local-first store of
// accounts, bookmarks and visit reviews, with optional best-effort sync to a
// remote syncd instance.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/raducm/tourism-app/internal/apperror"
	"github.com/raducm/tourism-app/internal/auth"
	"github.com/raducm/tourism-app/internal/config"
	"github.com/raducm/tourism-app/internal/kv"
	"github.com/raducm/tourism-app/internal/logger"
	"github.com/raducm/tourism-app/internal/model"
	"github.com/raducm/tourism-app/internal/repository"
	sqliteRepo "github.com/raducm/tourism-app/internal/repository/sqlite"
	"github.com/raducm/tourism-app/internal/service"
	"github.com/raducm/tourism-app/internal/session"
	syncclient "github.com/raducm/tourism-app/internal/sync"
)

const usage = `Usage: tourism <command> [flags]

Account:
  signup   -email -password [-username]   register and sign in
  signin   -email -password               sign in
  signout                                 sign out
  whoami                                  show the restored session

Locations:
  save     -location -name [-image -rating -description]   bookmark a location
  unsave   -location                                       remove a bookmark
  saved                                                    list bookmarks

Visits:
  visit    -location -name -lat -lng -rating [-review -image]   mark visited
  visited                                                       list visits
  stats                                                         visit/review counts

Sync:
  sync enable|disable|status|push|pull

Maintenance:
  dbstats                                 row counts for the local database
`

// app bundles the wired dependencies each subcommand works against.
type app struct {
	db     *sqliteRepo.DB
	state  *kv.Store
	auth   *service.AuthService
	sync   *syncclient.Client
	logger zerolog.Logger
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	log := logger.New("app")

	cfg, err := config.LoadApp()
	if err != nil {
		fatal(log, "loading configuration", err)
	}

	state, err := kv.Open(cfg.StatePath)
	if err != nil {
		fatal(log, "opening state store", err)
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		fatal(log, "opening database", err)
	}
	defer db.Close()

	sessions := session.NewStore(state, log)
	verifier := session.NewVerifier(sessions, db.Accounts(), log)
	syncClient := syncclient.New(syncclient.Config{
		BaseURL: cfg.SyncURL,
		Timeout: cfg.SyncTimeout,
	}, state, db.Accounts(), db.Locations(), db.Visits(), log)

	a := &app{
		db:    db,
		state: state,
		auth: service.NewAuthService(
			db.Accounts(), auth.NewPasswordService(), sessions, verifier, syncClient, log),
		sync:   syncClient,
		logger: log,
	}

	if err := a.run(os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", userMessage(err))
		os.Exit(1)
	}
}

func (a *app) run(command string, args []string) error {
	ctx := context.Background()

	switch command {
	case "signup":
		return a.cmdSignUp(ctx, args)
	case "signin":
		return a.cmdSignIn(ctx, args)
	case "signout":
		return a.auth.SignOut()
	case "whoami":
		return a.cmdWhoAmI(ctx)
	case "save":
		return a.cmdSave(ctx, args)
	case "unsave":
		return a.cmdUnsave(ctx, args)
	case "saved":
		return a.cmdSaved(ctx)
	case "visit":
		return a.cmdVisit(ctx, args)
	case "visited":
		return a.cmdVisited(ctx)
	case "stats":
		return a.cmdStats(ctx)
	case "dbstats":
		return a.cmdDBStats(ctx)
	case "sync":
		return a.cmdSync(ctx, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) cmdSignUp(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("signup", flag.ExitOnError)
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password (at least 6 characters)")
	username := fs.String("username", "", "display name (defaults to the email's local part)")
	fs.Parse(args)

	if len(*password) < 6 {
		return apperror.ValidationFailed("password", "password must be at least 6 characters")
	}

	sess, err := a.auth.SignUp(ctx, *email, *password, *username)
	if err != nil {
		return err
	}
	fmt.Printf("signed up as %s (%s)\n", sess.Account.Username, sess.Account.ID)
	return nil
}

func (a *app) cmdSignIn(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("signin", flag.ExitOnError)
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")
	fs.Parse(args)

	sess, err := a.auth.SignIn(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Printf("signed in as %s (%s)\n", sess.Account.Username, sess.Account.ID)
	return nil
}

func (a *app) cmdWhoAmI(ctx context.Context) error {
	sess, err := a.auth.Restore(ctx)
	if err != nil {
		return err
	}
	if sess == nil {
		fmt.Println("not signed in")
		return nil
	}
	fmt.Printf("%s (%s) <%s>\n", sess.Account.Username, sess.Account.ID, sess.Email)
	return nil
}

// requireSession restores and verifies the stored session; commands that
// touch per-account data call it first.
func (a *app) requireSession(ctx context.Context) (*model.Session, error) {
	sess, err := a.auth.Restore(ctx)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, errors.New("not signed in (run: tourism signin)")
	}
	return sess, nil
}

func (a *app) cmdSave(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("save", flag.ExitOnError)
	locationID := fs.String("location", "", "location id")
	name := fs.String("name", "", "location name")
	image := fs.String("image", "", "image URL")
	rating := fs.Float64("rating", 0, "feed rating")
	description := fs.String("description", "", "description")
	fs.Parse(args)

	sess, err := a.requireSession(ctx)
	if err != nil {
		return err
	}
	if *locationID == "" || *name == "" {
		return apperror.ValidationFailed("location", "-location and -name are required")
	}

	saved := &model.SavedLocation{
		AccountID:   sess.Account.ID,
		LocationID:  *locationID,
		Name:        *name,
		ImageURL:    *image,
		Rating:      *rating,
		Description: *description,
	}
	if err := a.db.Saved().Save(ctx, saved); err != nil {
		return err
	}
	fmt.Printf("saved %s (%s)\n", saved.Name, saved.ID)
	return nil
}

func (a *app) cmdUnsave(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("unsave", flag.ExitOnError)
	locationID := fs.String("location", "", "location id")
	fs.Parse(args)

	sess, err := a.requireSession(ctx)
	if err != nil {
		return err
	}
	if *locationID == "" {
		return apperror.ValidationFailed("location", "-location is required")
	}

	if err := a.db.Saved().Remove(ctx, sess.Account.ID, *locationID); err != nil {
		return err
	}
	fmt.Printf("removed %s\n", *locationID)
	return nil
}

func (a *app) cmdSaved(ctx context.Context) error {
	sess, err := a.requireSession(ctx)
	if err != nil {
		return err
	}

	saved, err := a.db.Saved().ListForAccount(ctx, sess.Account.ID)
	if err != nil {
		return err
	}
	if len(saved) == 0 {
		fmt.Println("no saved locations")
		return nil
	}
	for _, s := range saved {
		fmt.Printf("%s  %s  (saved %s)\n", s.LocationID, s.Name, s.SavedAt.Format("2006-01-02"))
	}
	return nil
}

func (a *app) cmdVisit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("visit", flag.ExitOnError)
	locationID := fs.String("location", "", "location id")
	name := fs.String("name", "", "location name")
	lat := fs.Float64("lat", 0, "latitude")
	lng := fs.Float64("lng", 0, "longitude")
	rating := fs.Int("rating", 0, "rating, 1-5")
	review := fs.String("review", "", "review text")
	image := fs.String("image", "", "image URL")
	fs.Parse(args)

	sess, err := a.requireSession(ctx)
	if err != nil {
		return err
	}
	if *locationID == "" || *name == "" {
		return apperror.ValidationFailed("location", "-location and -name are required")
	}

	visit, err := a.db.Visits().SaveVisitAndReview(ctx, repository.VisitParams{
		AccountID:    sess.Account.ID,
		LocationID:   *locationID,
		LocationName: *name,
		Latitude:     *lat,
		Longitude:    *lng,
		ImageURL:     *image,
		Rating:       *rating,
		ReviewText:   *review,
	})
	if err != nil {
		return err
	}
	fmt.Printf("visited %s, rated %d/5 (%s)\n", *locationID, visit.Rating, visit.ID)
	return nil
}

func (a *app) cmdVisited(ctx context.Context) error {
	sess, err := a.requireSession(ctx)
	if err != nil {
		return err
	}

	visits, err := a.db.Visits().ListVisited(ctx, sess.Account.ID)
	if err != nil {
		return err
	}
	if len(visits) == 0 {
		fmt.Println("no visits recorded")
		return nil
	}
	for _, v := range visits {
		line := fmt.Sprintf("%s  %s  %d/5", v.LocationID, v.Name, v.Rating)
		if v.ReviewText != "" {
			line += "  " + v.ReviewText
		}
		fmt.Println(line)
	}
	return nil
}

func (a *app) cmdStats(ctx context.Context) error {
	sess, err := a.requireSession(ctx)
	if err != nil {
		return err
	}

	stats, err := a.db.Visits().Stats(ctx, sess.Account.ID)
	if err != nil {
		return err
	}
	fmt.Printf("visited: %d locations, reviewed: %d\n", stats.Visited, stats.Reviews)
	return nil
}

// cmdDBStats needs no session: it reports on the whole local database, not on
// one account's slice of it.
func (a *app) cmdDBStats(ctx context.Context) error {
	stats, err := a.db.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("accounts: %d\nlocations: %d\nreviews: %d\n",
		stats.Accounts, stats.Locations, stats.Reviews)
	return nil
}

func (a *app) cmdSync(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: tourism sync enable|disable|status|push|pull")
	}

	switch args[0] {
	case "enable":
		if err := a.sync.SetEnabled(true); err != nil {
			return err
		}
		fmt.Println("sync enabled")
		return nil
	case "disable":
		if err := a.sync.SetEnabled(false); err != nil {
			return err
		}
		fmt.Println("sync disabled")
		return nil
	case "status":
		fmt.Printf("enabled: %v\n", a.sync.Enabled())
		if last, ok := a.sync.LastSync(); ok {
			fmt.Printf("last sync: %s\n", last.Format("2006-01-02 15:04:05 MST"))
		} else {
			fmt.Println("last sync: never")
		}
		if err := a.sync.Health(ctx); err != nil {
			fmt.Println("server: unreachable")
		} else {
			fmt.Println("server: ok")
		}
		return nil
	case "push":
		if err := a.sync.PushAll(ctx); err != nil {
			return err
		}
		fmt.Println("push complete")
		return nil
	case "pull":
		if err := a.sync.PullLocations(ctx); err != nil {
			return err
		}
		fmt.Println("pull complete")
		return nil
	default:
		return fmt.Errorf("unknown sync subcommand %q", args[0])
	}
}

// userMessage prefers the AppError message over the wrapped chain's prefixes.
func userMessage(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

func fatal(log zerolog.Logger, msg string, err error) {
	log.Error().Err(err).Msg(msg)
	fmt.Fprintln(os.Stderr, "error:", msg+":", err)
	os.Exit(1)
}
