// Copyright (C) 2026 tinystalk Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Command tinystalk boots a kernel image, runs any source files given on
// the command line as top-level expressions, and either evaluates one
// more expression or drops into a REPL.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/tinystalk/tinystalk/boot"
	"github.com/tinystalk/tinystalk/config"
	"github.com/tinystalk/tinystalk/console"
	"github.com/tinystalk/tinystalk/image"
	"github.com/tinystalk/tinystalk/interp"
	"github.com/tinystalk/tinystalk/oop"
	"github.com/tinystalk/tinystalk/primitive"
	"github.com/tinystalk/tinystalk/sched"
)

var (
	dashc    string
	dashi    string
	dashe    string
	dashsave string
)

func init() {
	flag.StringVar(&dashc, "c", "", "config YAML file (default: built-in defaults)")
	flag.StringVar(&dashi, "i", "", "monolithic image file to boot from (default: fresh in-process bootstrap)")
	flag.StringVar(&dashe, "e", "", "evaluate one expression and exit, instead of starting a REPL")
	flag.StringVar(&dashsave, "save", "", "write a monolithic image to this path after any source files run, then exit")
}

func exitf(f string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, f, args...)
	os.Exit(1)
}

func main() {
	flag.Parse()

	cfg := config.Default()
	if dashc != "" {
		c, err := config.Load(dashc)
		if err != nil {
			exitf("%s\n", err)
		}
		cfg = c
	}

	img, err := boot.Bootstrap()
	if err != nil {
		exitf("bootstrap: %s\n", err)
	}

	if dashi == "" {
		dashi = cfg.Image
	}
	if dashi != "" {
		if err := loadImage(img, dashi); err != nil {
			exitf("loading image %s: %s\n", dashi, err)
		}
	}

	for _, srcPath := range flag.Args() {
		if err := runSource(img, srcPath); err != nil {
			exitf("%s: %s\n", srcPath, err)
		}
	}

	if dashsave != "" {
		if err := saveImage(img, dashsave); err != nil {
			exitf("writing %s: %s\n", dashsave, err)
		}
		return
	}

	processClass := img.Classes["Process"]
	s := sched.NewScheduler(img.VM)
	ctrl := primitive.NewController(s, processClass, cfg.MaxStepsPerResume)

	var con *console.Console
	var host primitive.HostIO
	if cfg.Console != "pipe" {
		con = console.New(os.Stdin, os.Stdout)
		defer con.Close()
		host = newFileHost(con)
	}

	table := primitive.NewTable()
	primitive.RegisterStandard(table, host, ctrl, img.ImageClasses)
	img.VM.Primitives = table.Dispatch

	if dashe != "" {
		printResult(img, dashe)
		return
	}
	repl(img, con)
}

// runSource evaluates an entire source file as a single top-level
// expression -- this VM's source format has no class/method declaration
// chunk syntax, so a file and a REPL line are handled identically.
func runSource(img *boot.Image, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	_, cerr, err := img.Eval(string(data))
	if err != nil {
		return err
	}
	if cerr != nil {
		return fmt.Errorf("%s", cerr.Error())
	}
	return nil
}

func loadImage(img *boot.Image, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	mem, root, err := image.Read(f)
	if err != nil {
		return err
	}
	img.Mem = mem
	img.Symtab.SetRoot(root)
	img.Symtab.Rebind(mem)
	img.VM.SetMemory(mem)
	return nil
}

func saveImage(img *boot.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return image.Write(f, img.Mem, img.Symtab.Root(), img.ImageClasses)
}

func printResult(img *boot.Image, expr string) {
	result, cerr, err := img.Eval(expr)
	if err != nil {
		exitf("%s\n", err)
	}
	if cerr != nil {
		fmt.Fprintln(os.Stderr, cerr.Error())
		return
	}
	fmt.Println(printRef(img, result))
}

func printRef(img *boot.Image, r oop.Ref) string {
	switch {
	case r.IsNil():
		return "nil"
	case r.IsInteger():
		return fmt.Sprintf("%d", oop.IntValue(r))
	default:
		class := img.Mem.ClassOf(r)
		name, ok := interp.ClassName(img.Mem, class)
		if !ok {
			name = "Object"
		}
		return fmt.Sprintf("a %s", name)
	}
}

func repl(img *boot.Image, con *console.Console) {
	fmt.Print("tinystalk> ")
	if con != nil {
		for {
			line, ok := con.ReadLine()
			if !ok {
				return
			}
			con.WriteString("\n")
			if !evalLine(img, line) {
				return
			}
			fmt.Print("tinystalk> ")
		}
	}
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if !evalLine(img, strings.TrimSpace(scanner.Text())) {
			return
		}
		fmt.Print("tinystalk> ")
	}
}

// evalLine evaluates one REPL line, printing its result or error. It
// returns false when the REPL should stop.
func evalLine(img *boot.Image, line string) bool {
	if line == "" {
		return true
	}
	if line == "!quit" {
		return false
	}
	result, cerr, err := img.Eval(line)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %s\n", err)
		return false
	}
	if cerr != nil {
		fmt.Fprintln(os.Stderr, cerr.Error())
		return true
	}
	fmt.Println(printRef(img, result))
	return true
}
