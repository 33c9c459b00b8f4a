// Command bountyadmin is the operator CLI: schema migrations, participation
// review and bounty expiry outside the HTTP API.
package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/crowdbounty/backend/internal/config"
	"github.com/crowdbounty/backend/internal/db"
	"github.com/crowdbounty/backend/internal/events"
	"github.com/crowdbounty/backend/internal/repositories"
	"github.com/crowdbounty/backend/internal/services"
	"github.com/crowdbounty/backend/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var (
	bountyFlag = &cli.StringFlag{
		Name:     "bounty",
		Usage:    "Bounty id",
		Required: true,
	}

	participationFlag = &cli.StringFlag{
		Name:     "id",
		Usage:    "Participation id",
		Required: true,
	}

	statusFlag = &cli.StringFlag{
		Name:     "status",
		Usage:    "Review decision: approved or rejected",
		Required: true,
	}

	// actorFlag names the admin wallet recorded as reviewer.
	actorFlag = &cli.StringFlag{
		Name:  "as",
		Usage: "Admin wallet address to act as (defaults to the first ADMIN_ADDRESSES entry)",
	}

	dryRunFlag = &cli.BoolFlag{
		Name:  "dry-run",
		Usage: "List the migrations not yet applied without applying them",
	}
)

func main() {
	app := &cli.App{
		Name:  "bountyadmin",
		Usage: "operate the crowdbounty backend",
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "apply pending schema migrations",
				Flags:  []cli.Flag{dryRunFlag},
				Action: migrate,
			},
			{
				Name:  "participations",
				Usage: "inspect and review participations",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "list the participations of a bounty",
						Flags:  []cli.Flag{bountyFlag, actorFlag},
						Action: listParticipations,
					},
					{
						Name:   "review",
						Usage:  "approve or reject a pending participation",
						Flags:  []cli.Flag{participationFlag, statusFlag, actorFlag},
						Action: reviewParticipation,
					},
				},
			},
			{
				Name:  "bounties",
				Usage: "bounty maintenance",
				Subcommands: []*cli.Command{
					{
						Name:   "complete-expired",
						Usage:  "complete active bounties whose activity window ended",
						Action: completeExpired,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type env struct {
	cfg  *config.Config
	log  *zap.Logger
	pool *pgxpool.Pool
}

func (e *env) close() {
	e.pool.Close()
	_ = e.log.Sync()
}

func connect(ctx context.Context) (*env, error) {
	log, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}
	cfg := config.Load()
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return &env{cfg: cfg, log: log, pool: pool}, nil
}

// bountyService runs without Redis; events raised from the CLI are dropped.
func (e *env) bountyService() *services.BountyService {
	return services.NewBountyService(
		repositories.NewBountyRepo(e.pool),
		repositories.NewParticipationRepo(e.pool),
		nil,
		repositories.NewAuditRepo(e.pool),
		nil,
		events.NopPublisher{},
		e.cfg,
		e.log,
	)
}

func (e *env) actor(c *cli.Context) (string, error) {
	if as := c.String(actorFlag.Name); as != "" {
		return as, nil
	}
	if len(e.cfg.AdminAddresses) == 0 {
		return "", cli.Exit("no --as given and ADMIN_ADDRESSES is empty", 2)
	}
	return e.cfg.AdminAddresses[0], nil
}

func migrate(c *cli.Context) error {
	e, err := connect(c.Context)
	if err != nil {
		return err
	}
	defer e.close()

	if c.Bool(dryRunFlag.Name) {
		files, err := db.PendingFiles(c.Context, e.pool, migrations.FS)
		if err != nil {
			return err
		}
		for _, f := range files {
			fmt.Println(f)
		}
		return nil
	}
	return db.RunMigrations(c.Context, e.pool, migrations.FS, e.log)
}

func listParticipations(c *cli.Context) error {
	e, err := connect(c.Context)
	if err != nil {
		return err
	}
	defer e.close()

	actor, err := e.actor(c)
	if err != nil {
		return err
	}
	list, err := e.bountyService().ListParticipations(c.Context, c.String(bountyFlag.Name), actor)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPARTICIPANT\tPLATFORMS\tSTATUS\tCREATED")
	for _, p := range list {
		fmt.Fprintf(w, "%s\t%s\t%v\t%s\t%s\n", p.ID, p.CreatorAddress, p.Platforms, p.Status, p.CreatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func reviewParticipation(c *cli.Context) error {
	e, err := connect(c.Context)
	if err != nil {
		return err
	}
	defer e.close()

	actor, err := e.actor(c)
	if err != nil {
		return err
	}
	p, err := e.bountyService().ReviewParticipation(c.Context, c.String(participationFlag.Name), actor, c.String(statusFlag.Name))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "participation %s is now %s\n", p.ID, p.Status)
	return nil
}

func completeExpired(c *cli.Context) error {
	e, err := connect(c.Context)
	if err != nil {
		return err
	}
	defer e.close()

	n, err := e.bountyService().CompleteExpiredBounties(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "completed %d expired bounties\n", n)
	return nil
}
