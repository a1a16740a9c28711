package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/hybridsim/internal/config"
	"github.com/san-kum/hybridsim/internal/export"
	"github.com/san-kum/hybridsim/internal/storage"
)

var (
	plotElement   int
	exportElement int
	exportFormat  string
	exportOut     string
	exportDir     int
)

const maxPlots = 6

func openStore() (*storage.Store, error) {
	d := dsn
	if d == "" {
		d = os.Getenv(config.EnvPrefix + "_STORAGE_DSN")
	}
	return storage.Open(d, log)
}

func parseRunID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid run id: %s", s)
	}
	return uint(id), nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTIME\tDURATION\tDT\tINTEG\tSTEPS\tSTATUS")
	for _, run := range runs {
		status := "ok"
		if run.Failed {
			status = "failed"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%.2fs\t%.4fs\t%s\t%d\t%s\n",
			run.ID,
			run.Name,
			run.CreatedAt.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.Integrator,
			run.StepsTaken,
			status,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	id, err := parseRunID(args[0])
	if err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	run, res, err := st.LoadResult(id)
	if err != nil {
		return err
	}
	if len(res.Samples) < 2 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %d (%s)\n", run.ID, run.Name)
	fmt.Printf("samples: %d\n\n", len(res.Samples))

	neq := min(len(res.Samples[0].Disp), maxPlots)
	for eq := 0; eq < neq; eq++ {
		pts := export.History(res, eq)
		data := make([]float64, len(pts))
		for i, p := range pts {
			data[i] = p.Y
		}
		fmt.Println(asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("u%d vs time", eq)),
		))
		fmt.Println()
	}

	if plotElement == 0 {
		return nil
	}
	_, _, force := res.Element(plotElement)
	if len(force) == 0 {
		return fmt.Errorf("element %d not in run %d", plotElement, id)
	}
	for dir := 0; dir < min(len(force[0]), maxPlots); dir++ {
		data := make([]float64, len(force))
		for i := range force {
			data[i] = force[i][dir]
		}
		fmt.Println(asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("element %d basic force q%d", plotElement, dir)),
		))
		fmt.Println()
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	id, err := parseRunID(args[0])
	if err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	run, res, err := st.LoadResult(id)
	if err != nil {
		return err
	}

	switch exportFormat {
	case "xlsx":
		if exportOut == "" {
			exportOut = fmt.Sprintf("run_%d.xlsx", id)
		}
		if err := export.SaveXLSX(exportOut, res); err != nil {
			return err
		}
	case "svg":
		if exportOut == "" {
			exportOut = fmt.Sprintf("run_%d_e%d.svg", id, exportElement)
		}
		svg := export.PathSVG(export.Hysteresis(res, exportElement, exportDir), 800, 600, "#00ff00")
		if svg == "" {
			return fmt.Errorf("element %d has no data in direction %d", exportElement, exportDir)
		}
		if err := os.WriteFile(exportOut, []byte(svg), 0644); err != nil {
			return err
		}
	case "csv", "json":
		var w io.Writer = os.Stdout
		if exportOut != "" {
			f, err := os.Create(exportOut)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}
		if exportFormat == "csv" {
			return export.WriteCSV(w, res)
		}
		return export.WriteJSON(w, run.Name, run.Integrator, run.Dt, run.Duration, res)
	default:
		return fmt.Errorf("unknown format: %s", exportFormat)
	}

	fmt.Printf("exported run %d to %s\n", id, exportOut)
	return nil
}

func deleteRun(cmd *cobra.Command, args []string) error {
	id, err := parseRunID(args[0])
	if err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.DeleteRun(id); err != nil {
		return err
	}
	fmt.Printf("deleted run %d\n", id)
	return nil
}
