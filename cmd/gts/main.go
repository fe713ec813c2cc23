// gts plays matches between two search agents, on Connect-Four or Nim, and reports the results.
//
// Example:
//
//	$ gts -first="mcts,search_time=0.5" -second="iterative_deepening_alpha_beta,search_time=0.5" -num_matches=20
//
// Agents can also be configured in a YAML file, with one section per configuration, and referred to by
// "@<section>":
//
//	$ gts -config_file=agents.yaml -first=@fast_mcts -second=@deep_ab
//
// One of the players can be "human" (Connect-Four only), in which case moves are read from the terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/AntonJorg/general-tree-search/internal/games"
	"github.com/AntonJorg/general-tree-search/internal/games/connectfour"
	"github.com/AntonJorg/general-tree-search/internal/games/nim"
	"github.com/AntonJorg/general-tree-search/internal/metrics"
	"github.com/AntonJorg/general-tree-search/internal/parameters"
	"github.com/AntonJorg/general-tree-search/internal/profilers"
	"github.com/AntonJorg/general-tree-search/internal/ui/cli"
	"github.com/AntonJorg/general-tree-search/internal/ui/spinning"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"k8s.io/klog/v2"
)

var (
	flagFirst       = flag.String("first", "", "Configuration of the 1st agent, e.g. \"mcts,search_time=0.5\", or \"@<section>\" of the -config_file, or \"human\".")
	flagSecond      = flag.String("second", "", "Configuration of the 2nd agent, see -first.")
	flagConfigFile  = flag.String("config_file", "", "YAML file with agent configurations, one per top-level section.")
	flagGame        = flag.String("game", "connectfour", "Game to play: \"connectfour\" or \"nim\".")
	flagNimPiles    = flag.String("nim_piles", "3,4,5", "Comma-separated initial pile sizes for Nim.")
	flagResultDelay = flag.Duration("result_delay", 0, "Artificial delay added to each Connect-Four transition, to simulate expensive games.")
	flagNumMatches  = flag.Int("num_matches", 10, "Number of matches to play. Agents alternate as 1st player.")
	flagParallelism = flag.Int("parallelism", 1, "Number of matches played simultaneously. If > 1, agents measure "+
		"their search time with the wall clock, unless configured otherwise.")
	flagPrintSteps = flag.Bool("print_steps", false, "Print board at each step. Very verbose, and you probably want "+
		"to set -parallelism=1.")
	flagColor = flag.Bool("color", true, "Use colors when printing boards.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	if *flagFirst == "" || *flagSecond == "" {
		klog.Exit("You must configure both agents with flags -first and -second")
	}

	// Capture Control+C
	ctx, cancel := context.WithCancel(context.Background())
	spinning.SafeInterrupt(cancel, 5*time.Second)
	defer cancel()

	// Metrics are served along with the profiler (-prof flag).
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewRecorder(reg)
	profilers.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	must.M(profilers.Setup(ctx))
	defer profilers.OnQuit()

	configs := must.M1(playerConfigs(*flagConfigFile, [2]string{*flagFirst, *flagSecond}, *flagParallelism))
	opts := matchOptions{
		numMatches:  *flagNumMatches,
		parallelism: max(*flagParallelism, 1),
		printSteps:  *flagPrintSteps,
		recorder:    recorder,
	}
	var err error
	switch *flagGame {
	case "connectfour":
		ui := cli.New(*flagColor, false)
		opts.printSteps = opts.printSteps || isHuman(configs[0]) || isHuman(configs[1])
		err = runMatches(ctx, configs, opts, connectFourGame(ui))
	case "nim":
		var piles []int
		piles, err = parsePiles(*flagNimPiles)
		if err == nil {
			err = runMatches(ctx, configs, opts, nimGame(piles))
		}
	default:
		err = errors.Errorf("unknown game %q, valid values are \"connectfour\" or \"nim\"", *flagGame)
	}
	if err != nil {
		klog.Errorf("%+v", err)
		profilers.OnQuit()
		os.Exit(1)
	}
}

// playerConfigs resolves the configurations of both players: "@<section>" references are replaced by the
// parameters of that section of the YAML configuration file. If matches are played in parallel, the wall clock
// is used by default.
func playerConfigs(configFile string, configs [2]string, parallelism int) (resolved [2]string, err error) {
	var sections map[string]parameters.Params
	if configFile != "" {
		var data []byte
		data, err = os.ReadFile(configFile)
		if err != nil {
			return resolved, errors.Wrapf(err, "failed to read configuration file %q", configFile)
		}
		sections, err = parameters.SectionsFromYAML(data)
		if err != nil {
			return resolved, errors.WithMessagef(err, "configuration file %q", configFile)
		}
	}
	for idx, config := range configs {
		if section, found := strings.CutPrefix(config, "@"); found {
			params, ok := sections[section]
			if !ok {
				return resolved, errors.Errorf("configuration section %q not found (-config_file=%q)", section, configFile)
			}
			config = params.String()
		}
		if parallelism > 1 && !isHuman(config) {
			if _, found := parameters.NewFromConfigString(config)["clock"]; !found {
				config += ",clock=wall"
			}
		}
		klog.V(1).Infof("Player #%d configuration: %q", idx+1, config)
		resolved[idx] = config
	}
	return resolved, nil
}

func parsePiles(config string) ([]int, error) {
	var piles []int
	for _, part := range strings.Split(config, ",") {
		pile, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || pile < 0 || pile > 255 {
			return nil, errors.Errorf("invalid Nim pile %q in -nim_piles=%q", part, config)
		}
		piles = append(piles, pile)
	}
	return piles, nil
}

// connectFourGame returns the match definition for Connect-Four.
func connectFourGame(ui *cli.UI) game[connectfour.Action] {
	return game[connectfour.Action]{
		name: "Connect-Four",
		initial: func() games.State[connectfour.Action] {
			return connectfour.New(connectfour.WithResultDelay(*flagResultDelay))
		},
		newHuman: func() mover[connectfour.Action] { return &humanPlayer{ui: ui} },
		print: func(state games.State[connectfour.Action]) {
			ui.Print(state.(*connectfour.State))
		},
		printWinner: func(state games.State[connectfour.Action]) {
			ui.PrintWinner(state.(*connectfour.State))
		},
	}
}

// nimGame returns the match definition for Nim with the given initial piles.
func nimGame(piles []int) game[nim.Action] {
	printState := func(state games.State[nim.Action]) { fmt.Printf("\n%s\n", games.Describe(state)) }
	return game[nim.Action]{
		name:        "Nim",
		initial:     func() games.State[nim.Action] { return nim.New(piles...) },
		print:       printState,
		printWinner: printState,
	}
}
