package portal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gradewatch/internal/components/chrono"
	"gradewatch/internal/components/telemetry"
)

const report_debug_dump = "debug.dump"

type debugDumper struct {
	dir  string
	time chrono.TimeAPI
	tel  telemetry.API
}

// dump writes the source of a page that failed to parse into the debug
// directory, it does nothing when no directory is configured.
func (d debugDumper) dump(err error) {
	var failure *PageStructureFailure
	if d.dir == "" || !errors.As(err, &failure) || len(failure.Source) == 0 {
		return
	}

	mkdirErr := os.MkdirAll(d.dir, 0755)
	if mkdirErr != nil {
		d.tel.ReportWarning(report_debug_dump, mkdirErr)
		return
	}
	name := fmt.Sprintf(
		"debug_page_source_%s_%s.html",
		failure.Page,
		d.time.Now().Format("20060102T150405"),
	)
	path := filepath.Join(d.dir, name)
	writeErr := os.WriteFile(path, failure.Source, 0644)
	if writeErr != nil {
		d.tel.ReportWarning(report_debug_dump, writeErr)
		return
	}
	d.tel.ReportDebug("saved page source", path)
}
