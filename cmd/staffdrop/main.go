// Command staffdrop is the operator CLI: users and API keys, manual import
// submission, and running jobs that were left pending.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/staffdrop/internal/app"
	"github.com/dharsanguruparan/staffdrop/internal/config"
	"github.com/dharsanguruparan/staffdrop/internal/importer"
	"github.com/dharsanguruparan/staffdrop/internal/logging"
	"github.com/dharsanguruparan/staffdrop/internal/model"
	"github.com/dharsanguruparan/staffdrop/internal/spreadsheet"
)

var dispatchMode string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "staffdrop: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "staffdrop",
		Short:        "StaffDrop operator CLI",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&dispatchMode, "dispatch", "", "Override DISPATCH_MODE (asynq, local, inline, none)")
	cmd.AddCommand(
		newUserCmd(),
		newAPIKeyCmd(),
		newImportCmd(),
		newTemplateCmd(),
		newDevCmd(),
	)
	return cmd
}

// withApp loads configuration, wires the app and closes it after fn.
func withApp(ctx context.Context, fn func(*app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if dispatchMode != "" {
		cfg.DispatchMode = dispatchMode
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "user", Short: "Manage users"}
	var u model.User
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if u.ID == "" {
				u.ID = uuid.NewString()
			}
			return withApp(cmd.Context(), func(a *app.App) error {
				if err := a.Users.Create(cmd.Context(), u); err != nil {
					return err
				}
				return printJSON(u)
			})
		},
	}
	add.Flags().StringVar(&u.ID, "id", "", "User id (generated when empty)")
	add.Flags().StringVar(&u.Name, "name", "", "Display name")
	add.Flags().StringVar(&u.Email, "email", "", "Contact address for import notifications")
	add.Flags().BoolVar(&u.Admin, "admin", false, "Can see every import job")
	_ = add.MarkFlagRequired("name")
	cmd.AddCommand(add)
	return cmd
}

func newAPIKeyCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "apikey", Short: "Manage API keys"}
	var name, userID string
	create := &cobra.Command{
		Use:   "create",
		Short: "Issue an API key; the token is printed once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				if _, err := a.Users.GetUser(cmd.Context(), userID); err != nil {
					return err
				}
				key, token, err := a.Keys.Create(cmd.Context(), name, userID)
				if err != nil {
					return err
				}
				return printJSON(map[string]any{"key": key, "token": token})
			})
		},
	}
	create.Flags().StringVar(&name, "name", "", "Key label")
	create.Flags().StringVar(&userID, "user", "", "User the key acts as")
	_ = create.MarkFlagRequired("user")

	revoke := &cobra.Command{
		Use:   "revoke <key-id>",
		Short: "Deactivate an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				return a.Keys.Revoke(cmd.Context(), args[0])
			})
		},
	}
	cmd.AddCommand(create, revoke)
	return cmd
}

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "import", Short: "Submit, start and inspect employee imports"}
	var actorID string
	cmd.PersistentFlags().StringVar(&actorID, "as", "", "Acting user id")

	actor := func(ctx context.Context, a *app.App) (model.User, error) {
		if actorID == "" {
			return model.User{}, fmt.Errorf("--as is required")
		}
		return a.Users.GetUser(ctx, actorID)
	}

	var name string
	submit := &cobra.Command{
		Use:   "submit <file.xlsx>",
		Short: "Upload a workbook as a draft import job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(a *app.App) error {
				user, err := actor(cmd.Context(), a)
				if err != nil {
					return err
				}
				job, err := a.Imports.Submit(cmd.Context(), importer.SubmitInput{
					OwnerID:  user.ID,
					Name:     name,
					FileName: filepath.Base(args[0]),
					Data:     data,
				})
				if err != nil {
					return err
				}
				return printJSON(job)
			})
		},
	}
	submit.Flags().StringVar(&name, "name", "", "Job name")

	start := &cobra.Command{
		Use:   "start <job-id>...",
		Short: "Move draft jobs to pending and dispatch them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				user, err := actor(cmd.Context(), a)
				if err != nil {
					return err
				}
				return printJSON(a.Imports.Start(cmd.Context(), user, args...))
			})
		},
	}

	run := &cobra.Command{
		Use:   "run <job-id>...",
		Short: "Run started jobs in this process, e.g. ones left pending without a worker",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				return a.Runner.RunBatch(cmd.Context(), args...)
			})
		},
	}

	status := &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show a job's state, counters and errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				user, err := actor(cmd.Context(), a)
				if err != nil {
					return err
				}
				job, err := a.Imports.Get(cmd.Context(), user, args[0])
				if err != nil {
					return err
				}
				return printJSON(job)
			})
		},
	}

	cmd.AddCommand(submit, start, run, status)
	return cmd
}

func newTemplateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "template <out.xlsx>",
		Short: "Write an empty import workbook with the expected header",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := spreadsheet.Template()
			if err != nil {
				return err
			}
			return os.WriteFile(args[0], data, 0o644)
		},
	}
}

func newDevCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "dev", Short: "Development helpers"}
	var race bool
	test := &cobra.Command{
		Use:   "test [packages]",
		Short: "Run Go tests (defaults to ./...)",
		RunE: func(cmd *cobra.Command, args []string) error {
			goArgs := []string{"test"}
			if race {
				goArgs = append(goArgs, "-race")
			}
			if len(args) == 0 {
				args = []string{"./..."}
			}
			return runCommand(cmd.Context(), "go", append(goArgs, args...)...)
		},
	}
	test.Flags().BoolVar(&race, "race", false, "Enable Go race detector")
	cmd.AddCommand(test, newServiceRunner("server", "./cmd/server"), newServiceRunner("worker", "./cmd/worker"))
	return cmd
}

func newServiceRunner(name, path string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: fmt.Sprintf("go run %s", path),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(cmd.Context(), "go", append([]string{"run", path}, args...)...)
		},
	}
}

func runCommand(ctx context.Context, name string, args ...string) error {
	execCmd := exec.CommandContext(ctx, name, args...)
	execCmd.Stdout = os.Stdout
	execCmd.Stderr = os.Stderr
	execCmd.Stdin = os.Stdin
	return execCmd.Run()
}
