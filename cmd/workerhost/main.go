// Command workerhost is the Worker child process (spec §4.3). The
// Supervisor execs one of these per cold-started function, passing its
// configuration as flags; it listens on the port it's told to bind and
// exposes POST / (invoke) and GET /healthz (liveness).
package main

import (
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/novafn/novafn/internal/domain"
	"github.com/novafn/novafn/internal/logging"
	"github.com/novafn/novafn/internal/workerhost"
)

func main() {
	var (
		functionName = flag.String("function-name", "", "fully qualified function name")
		shortName    = flag.String("short-name", "", "function short name")
		trigger      = flag.String("trigger-kind", string(domain.TriggerHTTP), "http|pubsub|bucket|event")
		eventType    = flag.String("event-type", "", "trigger event type")
		resource     = flag.String("resource", "", "trigger resource")
		sourcePath   = flag.String("source-path", "", "local path to function code")
		entryPoint   = flag.String("entry-point", "", "function entry point")
		runtime      = flag.String("runtime", "echo", "built-in runtime: echo|shell|script")
		timeoutMS    = flag.Int("timeout-ms", 60000, "per-invocation timeout in milliseconds")
		port         = flag.Int("port", 0, "loopback port to bind (0 = ephemeral)")
		bindHost     = flag.String("bind-host", "127.0.0.1", "host to bind")
		envVars      = flag.String("env", "", "comma-separated KEY=VALUE pairs")
		debugPort    = flag.Int("debug", 0, "debugger port; 0 disables")
		inspectPort  = flag.Int("inspect", 0, "inspector port; 0 disables")
	)
	flag.Parse()

	if *functionName == "" || *sourcePath == "" {
		fmt.Fprintln(os.Stderr, "workerhost: --function-name and --source-path are required")
		os.Exit(2)
	}

	cfg := workerhost.Config{
		FunctionName: *functionName,
		ShortName:    *shortName,
		TriggerKind:  domain.TriggerKind(*trigger),
		EventType:    *eventType,
		Resource:     *resource,
		SourcePath:   *sourcePath,
		EntryPoint:   *entryPoint,
		Runtime:      *runtime,
		Timeout:      time.Duration(*timeoutMS) * time.Millisecond,
		EnvVars:      parseEnvVars(*envVars),
	}

	if *debugPort != 0 {
		logging.Op().Info("debugger attached", "function", *functionName, "port", *debugPort)
		fmt.Printf("Debugger for %s listening on port %d.\n", *shortName, *debugPort)
	}
	if *inspectPort != 0 {
		logging.Op().Info("inspector attached", "function", *functionName, "port", *inspectPort)
	}

	host := workerhost.New(cfg, logging.Op())

	addr := fmt.Sprintf("%s:%d", *bindHost, *port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "workerhost: listen: %v\n", err)
		os.Exit(1)
	}

	// The Supervisor binds us to :0 and reads the actual port back off
	// stdout before polling /healthz, per spec §5's ephemeral-port model.
	boundPort := listener.Addr().(*net.TCPAddr).Port
	fmt.Printf("LISTENING %d\n", boundPort)

	server := &http.Server{Addr: addr, Handler: host.Mux()}
	logging.Op().Info("workerhost starting", "function", *functionName, "port", boundPort)
	if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(os.Stderr, "workerhost: %v\n", err)
		os.Exit(1)
	}
}

func parseEnvVars(raw string) map[string]string {
	if raw == "" {
		return nil
	}
	out := map[string]string{}
	for _, pair := range strings.Split(raw, ",") {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			continue
		}
		out[kv[0]] = kv[1]
	}
	return out
}
