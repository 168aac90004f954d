// Command devector runs the Vector-06C coordinator headlessly: it loads a
// boot ROM and an optional RAM-disk image, drives the coordinator loop, and
// (if a debug-data file is given) attaches the debugger and saves its
// breakpoints/watchpoints/labels back out on exit.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"gopkg.in/urfave/cli.v2"

	"github.com/parallelno/devector/core"
	"github.com/parallelno/devector/debugger"
	"github.com/parallelno/devector/romloader"
)

func main() {
	app := &cli.App{
		Name:    "devector",
		Usage:   "Vector-06C emulator coordinator",
		Version: "v0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "boot-data",
				Usage: "path to the boot ROM image (plain binary, zip, 7z, gzip, rar, or xz)",
			},
			&cli.StringFlag{
				Name:  "ram-disk-data",
				Usage: "path to an image preloaded into RAM-disk 0 at startup",
			},
			&cli.BoolFlag{
				Name:  "ram-disk-clear-after-restart",
				Usage: "zero every RAM-disk on a RESTART request instead of preserving contents",
			},
			&cli.IntFlag{
				Name:  "ram-disks",
				Usage: "number of paged RAM-disks to allocate",
				Value: 1,
			},
			&cli.IntFlag{
				Name:  "irq-column",
				Usage: "raster column at which the frame interrupt is raised (0 keeps the hardware default)",
			},
			&cli.StringFlag{
				Name:  "debug-data",
				Usage: "path to a debug-data file (labels/consts/comments/breakpoints/watchpoints) to load and save",
			},
			&cli.IntFlag{
				Name:  "frames",
				Usage: "run this many display frames then exit (0 runs until interrupted)",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	bootData, err := loadOptionalPayload(c.String("boot-data"))
	if err != nil {
		return fmt.Errorf("boot-data: %w", err)
	}
	ramDiskData, err := loadOptionalPayload(c.String("ram-disk-data"))
	if err != nil {
		return fmt.Errorf("ram-disk-data: %w", err)
	}

	hw, err := core.NewHardware(core.Config{
		NumRAMDisks:              c.Int("ram-disks"),
		NumFDDDrives:              1,
		BootData:                 bootData,
		RAMDiskData:               ramDiskData,
		RAMDiskClearAfterRestart: c.Bool("ram-disk-clear-after-restart"),
		IRQColumn:                c.Int("irq-column"),
	})
	if err != nil {
		return fmt.Errorf("construct hardware: %w", err)
	}

	fs := afero.NewOsFs()
	var dbg *debugger.Debugger
	debugDataPath := c.String("debug-data")
	if debugDataPath != "" {
		dbg = debugger.New()
		dbg.Attach(hw)
		if _, statErr := fs.Stat(debugDataPath); statErr == nil {
			if err := dbg.Load(fs, debugDataPath); err != nil {
				return fmt.Errorf("load debug data: %w", err)
			}
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	runCtx, runCancel := context.WithCancel(ctx)
	defer runCancel()
	go hw.Run(runCtx)

	if hw.Submit(ctx, core.Request{Op: core.ReqRun}).Err != nil {
		return fmt.Errorf("start coordinator")
	}

	if frames := c.Int("frames"); frames > 0 {
		for i := 0; i < frames; i++ {
			if rep := hw.Submit(ctx, core.Request{Op: core.ReqExecuteFrame}); rep.Err != nil {
				return fmt.Errorf("execute frame %d: %w", i, rep.Err)
			}
		}
	} else {
		<-ctx.Done()
	}

	hw.Submit(ctx, core.Request{Op: core.ReqExit})
	runCancel()

	if dbg != nil && debugDataPath != "" {
		if err := dbg.Save(fs, debugDataPath); err != nil {
			return fmt.Errorf("save debug data: %w", err)
		}
	}
	return nil
}

func loadOptionalPayload(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	data, _, err := romloader.LoadPayload(path)
	return data, err
}
