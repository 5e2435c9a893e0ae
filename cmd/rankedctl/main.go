// Command rankedctl inspects and edits ranked sessions straight against the repository.
package main

import (
	"fmt"
	"os"

	"ranked-ledger/config"
	"ranked-ledger/models"
	"ranked-ledger/repository"
	"ranked-ledger/services"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		os.Exit(1)
	}
}

// cliEnv holds the repository opened by the first command of the process.
type cliEnv struct {
	repo repository.Backend
}

func newApp() *cli.App {
	env := &cliEnv{}
	return &cli.App{
		Name:  "rankedctl",
		Usage: "Inspect and edit ranked progression sessions",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "player",
				Aliases:  []string{"p"},
				Usage:    "player id the sessions belong to",
				EnvVars:  []string{"RANKED_PLAYER_ID"},
				Required: true,
			},
			&cli.StringFlag{
				Name:  "driver",
				Usage: "repository driver (postgres or memory); defaults to REPOSITORY_DRIVER",
			},
			&cli.StringFlag{
				Name:  "dsn",
				Usage: "postgres connection string; defaults to DATABASE_URL",
			},
		},
		Before: func(c *cli.Context) error {
			// .env is optional for the CLI
			_ = godotenv.Load()
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "active",
				Usage:     "show the active session of a game",
				ArgsUsage: "<game>",
				Action: env.withStore(func(c *cli.Context, st *services.SessionStore) error {
					sess, err := st.GetActiveSession(c.Context, gameArg(c))
					if err != nil {
						return err
					}
					if sess == nil {
						fmt.Fprintln(c.App.Writer, mutedStyle.Render("no active session"))
						return nil
					}
					fmt.Fprintln(c.App.Writer, renderSession(*sess))
					return nil
				}),
			},
			{
				Name:      "history",
				Usage:     "list completed sessions of a game, newest first",
				ArgsUsage: "<game>",
				Action: env.withStore(func(c *cli.Context, st *services.SessionStore) error {
					sessions, err := st.GetHistory(c.Context, gameArg(c))
					if err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, renderHistory(sessions))
					return nil
				}),
			},
			{
				Name:      "start",
				Usage:     "start a session",
				ArgsUsage: "<game>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "points", Usage: "rank points at the start", Required: true},
					&cli.IntFlag{Name: "target", Usage: "rank points goal"},
					&cli.StringFlag{Name: "name", Usage: "session label"},
				},
				Action: env.withStore(func(c *cli.Context, st *services.SessionStore) error {
					in := models.StartSessionInput{
						GameID:      gameArg(c),
						StartPoints: c.Int("points"),
						Name:        c.String("name"),
					}
					if c.IsSet("target") {
						target := c.Int("target")
						in.TargetPoints = &target
					}
					sess, err := st.StartSession(c.Context, in)
					if err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, okStyle.Render("started " + sess.ID))
					fmt.Fprintln(c.App.Writer, renderSession(sess))
					return nil
				}),
			},
			{
				Name:      "end",
				Usage:     "end the active session of a game",
				ArgsUsage: "<game>",
				Action: env.withStore(func(c *cli.Context, st *services.SessionStore) error {
					ended, err := st.EndSession(c.Context, gameArg(c))
					if err != nil {
						return err
					}
					if ended == nil {
						fmt.Fprintln(c.App.Writer, mutedStyle.Render("no active session"))
						return nil
					}
					fmt.Fprintln(c.App.Writer, okStyle.Render("ended " + ended.ID))
					fmt.Fprintln(c.App.Writer, renderSummary(services.Summarize(*ended)))
					return nil
				}),
			},
			{
				Name:      "add-match",
				Usage:     "record a match in a session",
				ArgsUsage: "<session-id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "result", Usage: "WIN, LOSS, DRAW or REMAKE", Required: true},
					&cli.IntFlag{Name: "delta", Usage: "points gained or lost", Required: true},
					&cli.StringFlag{Name: "champion"},
					&cli.StringFlag{Name: "map"},
					&cli.StringFlag{Name: "mode"},
					&cli.IntFlag{Name: "kills"},
					&cli.IntFlag{Name: "deaths"},
					&cli.IntFlag{Name: "assists"},
					&cli.StringFlag{Name: "score"},
					&cli.StringFlag{Name: "notes"},
				},
				Action: env.withStore(func(c *cli.Context, st *services.SessionStore) error {
					result, ok := models.ParseMatchResult(c.String("result"))
					if !ok {
						return fmt.Errorf("unknown result %q", c.String("result"))
					}
					sess, err := st.AddMatch(c.Context, c.Args().First(), models.MatchInput{
						Result:       result,
						PointsChange: c.Int("delta"),
						Champion:     c.String("champion"),
						Map:          c.String("map"),
						Mode:         c.String("mode"),
						Kills:        c.Int("kills"),
						Deaths:       c.Int("deaths"),
						Assists:      c.Int("assists"),
						Score:        c.String("score"),
						Notes:        c.String("notes"),
					})
					if err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, renderSession(sess))
					return nil
				}),
			},
			{
				Name:      "delete-match",
				Usage:     "remove a match and revert its points",
				ArgsUsage: "<session-id> <match-id>",
				Action: env.withStore(func(c *cli.Context, st *services.SessionStore) error {
					sess, err := st.DeleteMatch(c.Context, c.Args().Get(0), c.Args().Get(1))
					if err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, renderSession(sess))
					return nil
				}),
			},
			{
				Name:      "delete-session",
				Usage:     "delete a session permanently",
				ArgsUsage: "<session-id>",
				Action: env.withStore(func(c *cli.Context, st *services.SessionStore) error {
					id := c.Args().First()
					if err := st.DeleteSession(c.Context, id); err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, okStyle.Render("deleted " + id))
					return nil
				}),
			},
			{
				Name:      "summary",
				Usage:     "show win rate and point totals of a session",
				ArgsUsage: "<session-id>",
				Action: env.withStore(func(c *cli.Context, st *services.SessionStore) error {
					summary, err := st.Summary(c.Context, c.Args().First())
					if err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, renderSummary(summary))
					return nil
				}),
			},
		},
	}
}

func (env *cliEnv) withStore(action func(*cli.Context, *services.SessionStore) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		repo, err := env.open(c)
		if err != nil {
			return err
		}
		return action(c, services.NewSessionStore(c.String("player"), repo, services.StoreOptions{}))
	}
}

func (env *cliEnv) open(c *cli.Context) (repository.Backend, error) {
	if env.repo != nil {
		return env.repo, nil
	}
	var cfg config.Config
	if err := config.ParseEnv(&cfg); err != nil {
		return nil, err
	}
	driver := cfg.RepositoryDriver
	if c.IsSet("driver") {
		driver = c.String("driver")
	}
	dsn := cfg.DatabaseURL
	if c.IsSet("dsn") {
		dsn = c.String("dsn")
	}

	repo, err := repository.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	env.repo = repo
	return repo, nil
}

func gameArg(c *cli.Context) string {
	return c.Args().First()
}
