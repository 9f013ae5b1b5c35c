package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ayusman/punchalert/internal/config"
	"github.com/ayusman/punchalert/internal/overlay"
	"github.com/ayusman/punchalert/internal/server"
	"github.com/ayusman/punchalert/internal/store"
	"github.com/ayusman/punchalert/internal/tray"
)

func newRunCmd(opts *options) *cobra.Command {
	var video string
	var headless bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Detect punches from the camera or a video file until quit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if video != "" {
				cfg.Camera.File = video
			}

			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			display := func() overlay.Display { return overlay.NewHeadlessDisplay() }
			if cfg.Display.Enabled && !headless {
				display = func() overlay.Display {
					return overlay.NewWindowDisplay(cfg.Display.Title, cfg.QuitRune())
				}
			}

			c, err := newController(cfg, st, display)
			if err != nil {
				return err
			}
			defer c.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := c.Run(ctx); err != nil {
				return err
			}

			status := c.Status()
			logrus.WithFields(logrus.Fields{
				"session": status.SessionID,
				"frames":  status.Stats.Frames,
				"windows": status.Stats.Windows,
			}).Info("run finished")
			return nil
		},
	}

	cmd.Flags().StringVar(&video, "video", "", "replay a video file instead of the camera")
	cmd.Flags().BoolVar(&headless, "headless", false, "do not open a preview window")
	return cmd
}

func newServeCmd(opts *options) *cobra.Command {
	var addr string
	var autostart bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API, MJPEG stream and live events",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if addr == "" {
				addr = cfg.Server.Addr
			}

			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			c, err := newController(cfg, st, nil)
			if err != nil {
				return err
			}
			defer c.Close()

			if autostart {
				if err := c.Start(); err != nil {
					return err
				}
			}

			srv := server.New(server.Config{
				StaticDir:  findWebDir(cfg.Server.StaticDir),
				Store:      st,
				Controller: c,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.addr)")
	cmd.Flags().BoolVar(&autostart, "start", false, "start detection immediately")
	return cmd
}

func newTrayCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "tray",
		Short: "Run from the system tray with the HTTP API in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg

			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			c, err := newController(cfg, st, nil)
			if err != nil {
				return err
			}
			defer c.Close()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			srv := server.New(server.Config{
				StaticDir:  findWebDir(cfg.Server.StaticDir),
				Store:      st,
				Controller: c,
			})
			go func() {
				if err := srv.ListenAndServe(ctx, cfg.Server.Addr); err != nil {
					logrus.WithError(err).Error("http server stopped")
				}
			}()

			t := tray.New(c)
			t.OnSettings(func() { openBrowser(dashboardURL(cfg.Server.Addr)) })
			t.OnQuit(cancel)
			t.Run()
			return nil
		},
	}
}

func newHistoryCmd(opts *options) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [session-id]",
		Short: "List recorded sessions, or the verdicts of one session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(opts.cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			defer w.Flush()

			if len(args) == 1 {
				return printVerdicts(w, st, args[0])
			}
			return printSessions(w, st, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of sessions to list")
	return cmd
}

func printSessions(w *tabwriter.Writer, st *store.Store, limit int) error {
	sessions, err := st.Sessions().List(limit)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "ID\tSTARTED\tDURATION\tSOURCE\tFRAMES\tWINDOWS\tPUNCHES")
	for _, s := range sessions {
		duration := "running"
		if s.EndedAt != nil {
			duration = s.EndedAt.Sub(s.StartedAt).Round(time.Second).String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
			s.ID, s.StartedAt.Format(time.DateTime), duration, s.Source, s.Frames, s.Windows, s.Punches)
	}
	return nil
}

func printVerdicts(w *tabwriter.Writer, st *store.Store, id string) error {
	if _, err := st.Sessions().GetByID(id); errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("session %s not found", id)
	} else if err != nil {
		return err
	}

	verdicts, err := st.Verdicts().ListBySession(id)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "SEQ\tTIME\tLABEL\tPROBABILITY\tLATENCY\tERROR")
	for _, v := range verdicts {
		fmt.Fprintf(w, "%d\t%s\t%s\t%.3f\t%.1fms\t%s\n",
			v.Seq, v.CreatedAt.Format(time.TimeOnly), v.Label, v.Probability, v.LatencyMs, v.Error)
	}
	return nil
}

func newConfigCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	var path string
	var force bool
	initCmd := &cobra.Command{
		Use:         "init",
		Short:       "Write the default configuration file",
		Annotations: map[string]string{"skipConfig": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				path = filepath.Join(config.DataDir(), config.FileName+".yaml")
			}
			if err := config.WriteDefault(path, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().StringVarP(&path, "output", "o", "", "destination (default ~/.punchalert/punchalert.yaml)")
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	cmd.AddCommand(initCmd)
	return cmd
}

func dashboardURL(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		logrus.WithError(err).Warn("failed to open browser")
	}
}
