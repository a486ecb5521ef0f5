/*

Traitsim simulates discrete traits on phylogenetic networks with
hybrid nodes. The traits evolve along the network edges according to a
continuous-time Markov model. A hybrid node inherits every trait from
one of its parents, the parent is chosen with the inheritance
probability of the edge.

The basic usage of traitsim looks like this:

	traitsim network.nwk

, this will simulate one binary trait with both rates equal to one
and print the leaf states.

You can change the model, the rates and the number of traits:

	traitsim --model equal --k 4 --rates 0.5 --ntraits 100 network.nwk

The network is read in the extended Newick format, hybrid nodes are
marked with '#' and the edge fields are length, support and
inheritance probability:

	((A:1,(B:1)#H1:1::0.6):1,(#H1:1::0.4,C:1):1);

Settings can also be read from a YAML file (--config), values set in
the file override the command-line flags.

To see all the options run:

	traitsim -h

*/
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"time"

	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/op/go-logging"

	"bitbucket.org/Davydov/traitsim/network"
	"bitbucket.org/Davydov/traitsim/tmodel"
	"bitbucket.org/Davydov/traitsim/tsim"
)

// These three variables are set during the compilation.
var githash = ""
var gitbranch = ""
var buildstamp = ""
var version = fmt.Sprintf("branch: %s, revision: %s, build time: %s", gitbranch, githash, buildstamp)

// Logger settings.
var log = logging.MustGetLogger("traitsim")
var formatter = logging.MustStringFormatter(`%{message}`)

// command-line options
var (
	// application
	app = kingpin.New("traitsim", "discrete trait simulator for phylogenetic networks").Version(version)

	// input network
	networkFileName = app.Arg("network", "phylogenetic network in the extended Newick format").Required().ExistingFile()

	// model parameters
	model = app.Flag("model", "substitution model "+
		"(binary: binary trait, "+
		"twobinary: two correlated binary traits, "+
		"equal: k states with equal rates)").
		Default("binary").
		Enum("binary", "twobinary", "equal")
	rates = app.Flag("rates", "comma-separated model rates "+
		"(binary: alpha,beta; twobinary: eight rates; equal: alpha), all ones by default").String()
	nStates = app.Flag("k", "number of states for the equal rates model").Default("2").Int()
	labels  = app.Flag("labels", "comma-separated state labels "+
		"(twobinary: labels of x0,x1,y0,y1)").String()
	show = app.Flag("show", "print the model and the rate matrix").Bool()

	// simulation parameters
	nTraits    = app.Flag("ntraits", "number of traits to simulate").Default("1").Int()
	internal   = app.Flag("internal", "output internal node states").Bool()
	noPreorder = app.Flag("nopreorder", "don't recompute the node order before simulation").Bool()
	gammaAlpha = app.Flag("gamma-alpha", "shape parameter of the gamma rate variation across traits "+
		"(no variation by default)").Default("0").Float64()
	gammaNCat = app.Flag("gamma-ncat", "number of categories for the gamma rate variation").Default("4").Int()

	// technical
	seed    = app.Flag("seed", "random generator seed, default time based").Default("-1").Int64()
	configF = app.Flag("config", "read settings from a YAML file").ExistingFile()

	// input/output
	outLogF  = app.Flag("log", "write log to a file").String()
	outF     = app.Flag("out", "write simulated states to a file").String()
	indices  = app.Flag("indices", "output state indices instead of labels").Bool()
	logLevel = app.Flag("loglevel", "set loglevel "+
		"('critical', 'error', 'warning', 'notice', 'info', 'debug')").
		Default("notice").
		Enum("critical", "error", "warning", "notice", "info", "debug")
	jsonF = app.Flag("json", "write json output to a file").String()
)

func run(s *settings) (summary *RunSummary, err error) {
	startTime := time.Now()
	summary = &RunSummary{NTraits: s.NTraits}

	m, err := s.createModel()
	if err != nil {
		return nil, err
	}
	log.Infof("Using %s", m.Name())
	if *show {
		var b bytes.Buffer
		if err := tmodel.Show(&b, m); err != nil {
			return nil, err
		}
		log.Notice(b.String())
	}
	summary.Model = newModelSummary(m)

	networkFile, err := os.Open(*networkFileName)
	if err != nil {
		return nil, err
	}
	defer networkFile.Close()

	net, err := network.ParseNewick(networkFile)
	if err != nil {
		return nil, err
	}
	log.Infof("Read network with %d nodes and %d leaves", net.NNodes(), net.NLeaves())
	log.Debugf("network=%s", net)
	log.Debug(net.FullString())
	summary.Network = net.String()

	opts, err := s.options()
	if err != nil {
		return nil, err
	}
	if opts.RateVariation != nil {
		log.Infof("Gamma rate variation: %v", opts.RateVariation)
		summary.GammaRates = opts.RateVariation.Rates()
	}

	res, err := tsim.RandomTraitNetwork(m, net, opts)
	if err != nil {
		return nil, err
	}

	f := os.Stdout
	if *outF != "" {
		f, err = os.Create(*outF)
		if err != nil {
			return nil, fmt.Errorf("error creating output file: %v", err)
		}
		defer f.Close()
	}
	if err := writeStates(f, res, m, *indices); err != nil {
		return nil, err
	}

	deltaT := time.Since(startTime)
	log.Noticef("Running time: %v", deltaT)
	summary.Time = deltaT.Seconds()

	return summary, nil
}

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	// logging
	logging.SetFormatter(formatter)

	var backend *logging.LogBackend
	if *outLogF != "" {
		f, err := os.OpenFile(*outLogF, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Fatal("Error creating log file:", err)
		}
		defer f.Close()
		backend = logging.NewLogBackend(f, "", 0)
	} else {
		backend = logging.NewLogBackend(os.Stderr, "", 0)
	}
	logging.SetBackend(backend)

	level, err := logging.LogLevel(*logLevel)
	if err != nil {
		log.Fatal(err)
	}
	logging.SetLevel(level, "traitsim")
	logging.SetLevel(level, "tsim")
	logging.SetLevel(level, "tmodel")
	logging.SetLevel(level, "network")

	// print revision
	log.Info(version)

	// print commandline
	log.Info("Command line:", os.Args)

	s, err := newSettings()
	if err != nil {
		log.Fatal(err)
	}
	if *configF != "" {
		f, err := os.Open(*configF)
		if err != nil {
			log.Fatal(err)
		}
		err = s.readYAML(f)
		f.Close()
		if err != nil {
			log.Fatalf("Error reading %s: %v", *configF, err)
		}
		log.Infof("Settings from %s", *configF)
	}

	if s.Seed == -1 {
		s.Seed = time.Now().UnixNano()
		log.Debug("Random seed from time")
	}
	log.Infof("Random seed=%v", s.Seed)
	rand.Seed(s.Seed)

	summary, err := run(s)
	if err != nil {
		log.Fatal(err)
	}
	summary.Version = version
	summary.CommandLine = os.Args
	summary.Seed = s.Seed

	// output summary in json format
	if *jsonF != "" {
		j, err := json.Marshal(summary)
		if err != nil {
			log.Error(err)
		} else {
			log.Debug(string(j))
			f, err := os.Create(*jsonF)
			if err != nil {
				log.Error("Error creating json output file:", err)
			} else {
				f.Write(j)
				f.Close()
			}
		}
	}
}
