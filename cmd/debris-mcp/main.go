package main

import (
	"fmt"
	"log"
	"os"

	"github.com/ironsheep/debris-tools-mcp/internal/config"
	"github.com/ironsheep/debris-tools-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("debris-tools-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("debris-tools-mcp - MCP server for locating foreign objects in images")
			fmt.Println()
			fmt.Println("Usage: debris-tools-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables:")
			fmt.Println("  DEBRIS_MCP_LOG_LEVEL=debug    Enable debug logging")
			fmt.Println("  DEBRIS_MCP_CONFIG=<file>      YAML file with default tool parameters")
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
			return
		}
	}

	// Configure logging to stderr (stdout is for MCP protocol)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	var debug *log.Logger
	if os.Getenv("DEBRIS_MCP_LOG_LEVEL") == "debug" {
		debug = log.Default()
		log.Printf("Debris MCP Server v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
	}

	params := config.Default()
	if path := os.Getenv("DEBRIS_MCP_CONFIG"); path != "" {
		var err error
		if params, err = config.Load(path); err != nil {
			log.Fatalf("Config error: %v", err)
		}
		if debug != nil {
			log.Printf("Loaded parameters from %s:\n%s", path, params.AsYaml())
		}
	}

	srv := server.NewWithParams(params, debug)
	if err := srv.Run(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
