package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/DeusData/designer-mcp/internal/tools"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var version = "dev"

const usage = `designer-mcp %s

Usage:
  designer-mcp [--config FILE]              serve the MCP tools over stdio
  designer-mcp dump FILE [--events FILE]    print the widget metadata of FILE
  designer-mcp set-id FILE WIDGET NEW_ID    set a widget id and save the sibling
  designer-mcp diff FILE WIDGET NEW_ID      show the edit set-id would make
  designer-mcp roundtrip PATH               verify byte-preserving saves of every UI file
  designer-mcp watch PATH                   re-run roundtrip checks as files change
  designer-mcp history [--limit N] [FILE]   list journaled saves
  designer-mcp install [--dry-run]          register the MCP server with editors
  designer-mcp uninstall [--dry-run]        remove the editor registrations
  designer-mcp --version

WIDGET is an internal id (widget-3) or a current widget id. NEW_ID "" removes
the widget id. Every command accepts --config FILE; otherwise .designer.yaml
is read from the directory of FILE (or the working directory).
`

func main() {
	if len(os.Args) > 1 {
		args := os.Args[2:]
		switch os.Args[1] {
		case "--version":
			fmt.Println("designer-mcp", version)
			os.Exit(0)
		case "help", "--help", "-h":
			fmt.Printf(usage, version)
			os.Exit(0)
		case "dump":
			os.Exit(runDump(args, os.Stdout, os.Stderr))
		case "set-id":
			os.Exit(runSetID(args, os.Stdout, os.Stderr))
		case "diff":
			os.Exit(runDiff(args, os.Stdout, os.Stderr))
		case "roundtrip":
			os.Exit(runRoundtrip(args, os.Stdout, os.Stderr))
		case "watch":
			os.Exit(runWatch(args, os.Stdout, os.Stderr))
		case "history":
			os.Exit(runHistory(args, os.Stdout, os.Stderr))
		case "install":
			os.Exit(runInstall(args))
		case "uninstall":
			os.Exit(runUninstall(args))
		}
	}
	os.Exit(runServe(os.Args[1:], os.Stderr))
}

func runServe(args []string, stderr io.Writer) int {
	opts, err := parseFlags(args)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}
	if len(opts.positional) > 0 {
		fmt.Fprintf(stderr, "unknown command %q\n\n", opts.positional[0])
		fmt.Fprintf(stderr, usage, version)
		return 2
	}

	cfg, err := loadConfig(opts.config, ".")
	if err != nil {
		log.Printf("config err=%v", err)
		return 1
	}
	sess, j, err := newSession(cfg)
	if err != nil {
		log.Printf("session err=%v", err)
		return 1
	}

	tools.Version = version
	srv := tools.NewServer(sess, j)

	runErr := srv.MCPServer().Run(context.Background(), &mcp.StdioTransport{})
	if j != nil {
		j.Close()
	}
	if runErr != nil {
		log.Printf("server err=%v", runErr)
		return 1
	}
	return 0
}
