package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"xctrace-mcp/internal/xctrace"
)

// Export holds everything parsed out of one xctrace export directory. A nil
// Trace or empty slice means that category was not captured; the *Captured
// flags distinguish "file absent" from "file present, zero records".
type Export struct {
	Dir     string
	Schemas []string

	Trace        *xctrace.Trace
	LifeCycle    []xctrace.LifeCyclePhase
	LibraryLoads []xctrace.LibraryLoad
	Hangs        []xctrace.Hang
	Hitches      []xctrace.Hitch
	Leaks        []xctrace.Leak
	AllocStats   []xctrace.AllocationStat
	Energy       []xctrace.EnergySample
	ViewUpdates  []xctrace.ViewUpdate

	HangsCaptured   bool
	HitchesCaptured bool
	LeaksCaptured   bool
}

// Export file names as written by xctrace export, one document per schema.
const (
	tocFile         = "toc.xml"
	timeProfileFile = "time-profile.xml"
	lifeCycleFile   = "life-cycle-period.xml"
	dyldLoadFile    = "dyld-library-load.xml"
	hangsFile       = "potential-hangs.xml"
	hitchesFile     = "hitches.xml"
	leaksFile       = "Leaks-Leaks.xml"
	allocStatsFile  = "Allocations-Statistics.xml"
	energyFile      = "energy-impact.xml"
	viewUpdatesFile = "swiftui-updates.xml"
)

// LoadExport reads every known category document found in dir. A category
// whose document is missing or malformed is skipped with a warning; only a
// missing directory is an error.
func LoadExport(dir string, log *logrus.Logger) (*Export, error) {
	if log == nil {
		log = logrus.New()
		log.SetLevel(logrus.WarnLevel)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("export directory not found: %s", dir)
	}

	exp := &Export{Dir: dir}

	loadCategory(dir, tocFile, log, func(f *os.File) error {
		schemas, err := xctrace.ReadTOC(f)
		exp.Schemas = schemas
		return err
	})
	loadCategory(dir, timeProfileFile, log, func(f *os.File) error {
		trace, err := xctrace.ParseTimeProfile(f)
		exp.Trace = trace
		return err
	})
	loadCategory(dir, lifeCycleFile, log, func(f *os.File) error {
		phases, err := xctrace.ParseLifeCycle(f)
		exp.LifeCycle = phases
		return err
	})
	loadCategory(dir, dyldLoadFile, log, func(f *os.File) error {
		loads, err := xctrace.ParseLibraryLoads(f)
		exp.LibraryLoads = loads
		return err
	})
	exp.HangsCaptured = loadCategory(dir, hangsFile, log, func(f *os.File) error {
		hangs, err := xctrace.ParseHangs(f)
		exp.Hangs = hangs
		return err
	})
	exp.HitchesCaptured = loadCategory(dir, hitchesFile, log, func(f *os.File) error {
		hitches, err := xctrace.ParseHitches(f)
		exp.Hitches = hitches
		return err
	})
	exp.LeaksCaptured = loadCategory(dir, leaksFile, log, func(f *os.File) error {
		leaks, err := xctrace.ParseLeaks(f)
		exp.Leaks = leaks
		return err
	})
	loadCategory(dir, allocStatsFile, log, func(f *os.File) error {
		stats, err := xctrace.ParseAllocationStats(f)
		exp.AllocStats = stats
		return err
	})
	loadCategory(dir, energyFile, log, func(f *os.File) error {
		samples, err := xctrace.ParseEnergy(f)
		exp.Energy = samples
		return err
	})
	loadCategory(dir, viewUpdatesFile, log, func(f *os.File) error {
		updates, err := xctrace.ParseViewUpdates(f)
		exp.ViewUpdates = updates
		return err
	})

	return exp, nil
}

// loadCategory opens one category document and hands it to parse. Returns
// whether the document existed and parsed; failures are logged, never fatal.
func loadCategory(dir, name string, log *logrus.Logger, parse func(*os.File) error) bool {
	path := filepath.Join(dir, name)
	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.WithFields(logrus.Fields{"file": path, "error": err}).Warn("Could not open export document")
		}
		return false
	}
	defer f.Close()

	if err := parse(f); err != nil {
		log.WithFields(logrus.Fields{"file": path, "error": err}).Warn("Skipping malformed export document")
		return false
	}
	log.WithField("file", name).Debug("Parsed export document")
	return true
}
