package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/murphy-project/murphyd/pkg/arbiter"
	"github.com/murphy-project/murphyd/pkg/config"
	"github.com/murphy-project/murphyd/pkg/fact"
	"github.com/murphy-project/murphyd/pkg/log"
	"github.com/murphy-project/murphyd/pkg/mdb"
	"github.com/murphy-project/murphyd/pkg/metrics"
	"github.com/murphy-project/murphyd/pkg/registry"
	"github.com/murphy-project/murphyd/pkg/resolver"
	"github.com/murphy-project/murphyd/pkg/resource"
	"github.com/murphy-project/murphyd/pkg/script"
	"github.com/murphy-project/murphyd/pkg/script/lua"
	"github.com/murphy-project/murphyd/pkg/script/must"
)

// configError, arbiterInitError, and resolverError carry the exit codes
// spec §6 assigns to each failure class.
type configError struct{ err error }

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) ExitCode() int { return exitConfigError }

type arbiterInitError struct{ err error }

func (e *arbiterInitError) Error() string { return e.err.Error() }
func (e *arbiterInitError) ExitCode() int { return exitArbiterInit }

type resolverError struct{ err error }

func (e *resolverError) Error() string { return e.err.Error() }
func (e *resolverError) ExitCode() int { return exitResolverError }

var runCmd = &cobra.Command{
	Use:   "run <rules-file>",
	Short: "Boot a demo registry, link a resolver rule file, and drive a sample arbitration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
		target, _ := cmd.Flags().GetString("target")
		configPath, _ := cmd.Flags().GetString("config")
		return runDemo(args[0], configPath, metricsAddr, target)
	},
}

func init() {
	runCmd.Flags().String("metrics-addr", ":9090", "address to serve /metrics on")
	runCmd.Flags().String("target", "", "resolver target to update after boot (optional)")
	runCmd.Flags().String("config", "", "YAML file declaring the demo zone/resource/class catalogue (built-in defaults if unset)")
}

// runDemo wires every core package together against a zone/class/resource
// catalogue — either the one declared in a YAML config file, or a small
// built-in default — the way an embedding daemon would after parsing its
// own configuration file (out of scope here, per spec §1).
func runDemo(rulesPath, configPath, metricsAddr, target string) error {
	logger := log.WithComponent("murphyd")

	source, err := os.ReadFile(rulesPath)
	if err != nil {
		return &configError{fmt.Errorf("reading rules file: %w", err)}
	}

	reg := registry.New()
	if configPath != "" {
		demo, err := config.Load(configPath)
		if err != nil {
			return &configError{err}
		}
		if err := demo.Apply(reg); err != nil {
			return &arbiterInitError{err}
		}
	} else if err := applyBuiltinDemo(reg); err != nil {
		return &arbiterInitError{err}
	}
	if reg.Sealed() {
		metrics.RegisterComponent("registry", true, "")
	} else {
		metrics.RegisterComponent("registry", false, "catalogue not sealed")
	}

	metrics.ZonesTotal.Set(float64(len(reg.Zones())))
	metrics.ResourceDefsTotal.Set(float64(len(reg.ResourceDefs())))
	metrics.ClassesTotal.Set(float64(len(reg.Classes())))

	engine, err := arbiter.New(reg)
	if err != nil {
		return &arbiterInitError{err}
	}

	db := mdb.New()
	facts := fact.New(db)

	parsed, err := resolver.ParseRules(string(source))
	if err != nil {
		return &resolverError{err}
	}
	graph, err := resolver.Link(parsed, facts)
	if err != nil {
		return &resolverError{err}
	}
	metrics.RegisterComponent("resolver", true, "")

	scripts := script.NewRegistry()
	if err := scripts.Register(lua.Tag, lua.New()); err != nil {
		return &resolverError{err}
	}
	if err := scripts.Register(must.Tag, must.New()); err != nil {
		return &resolverError{err}
	}

	res := resolver.New(graph, facts, scripts)
	metrics.TargetsTotal.Set(float64(len(graph.Order())))

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		mux.Handle("/health", metrics.HealthHandler())
		mux.Handle("/ready", metrics.ReadyHandler())
		mux.Handle("/live", metrics.LivenessHandler())
		metrics.RegisterComponent("api", true, "")
		logger.Info().Str("addr", metricsAddr).Msg("serving /metrics, /health, /ready, /live")
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			metrics.RegisterComponent("api", false, err.Error())
			logger.Error().Err(err).Msg("metrics server stopped")
		}
	}()

	client := resource.NewClient("murphyd-demo", nil)
	set := resource.NewSet("driver-seat", "foreground", client, 0)
	defer set.Destroy()
	if err := set.AddResource("audio_playback", 0, true, false, nil); err != nil {
		return &arbiterInitError{err}
	}

	set.Acquire(1)
	engine.Register(set)
	if err := engine.Run("driver-seat"); err != nil {
		return fmt.Errorf("arbitration run: %w", err)
	}
	logger.Info().Uint32("set_id", set.ID).Uint32("grant", set.Grant).Uint32("advice", set.Advice).Msg("sample acquire arbitrated")

	if err := engine.ClassPrint(os.Stdout); err != nil {
		return err
	}
	if err := engine.OwnerPrint(os.Stdout); err != nil {
		return err
	}
	if err := engine.SetPrint(os.Stdout, "driver-seat"); err != nil {
		return err
	}

	if target != "" {
		if err := res.UpdateTarget(target, nil); err != nil {
			return &resolverError{err}
		}
		fmt.Printf("target %q updated\n", target)
	}

	return nil
}

// applyBuiltinDemo seeds reg with the fallback catalogue used when no
// --config file is given: one zone, one exclusive and one shareable
// resource definition, and a two-tier priority class split.
func applyBuiltinDemo(reg *registry.Registry) error {
	if _, err := reg.CreateZone("driver-seat", nil); err != nil {
		return err
	}
	if _, err := reg.CreateResourceDef("audio_playback", false, nil); err != nil {
		return err
	}
	if _, err := reg.CreateResourceDef("video_playback", true, nil); err != nil {
		return err
	}
	if _, err := reg.CreateClass("background", 0); err != nil {
		return err
	}
	if _, err := reg.CreateClass("foreground", 10); err != nil {
		return err
	}
	reg.Seal()
	return nil
}
