package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/plantmesh/plantmesh-go/pkg/address"
	"github.com/plantmesh/plantmesh-go/pkg/mesh"
)

// version is overridden by goreleaser via -ldflags "-X main.version=...".
var version = "dev"

var (
	cfgFile        string
	directoryURL   string
	username       string
	password       string
	staticURLs     []string
	requestTimeout time.Duration
	verbose        bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pmesh",
	Short: "PlantMesh service-mesh CLI",
	Long: `pmesh is the command-line interface for a PlantMesh installation.

It talks to the mesh the way any client does: services are located through
the Directory, requests carry per-service bearer tokens, and telemetry is
streamed from the MQTT broker.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(home + "/.pmesh")
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.SetEnvPrefix("pmesh")
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		if directoryURL == "" {
			directoryURL = viper.GetString("directory_url")
		}
		if username == "" {
			username = viper.GetString("username")
		}
		if password == "" {
			password = viper.GetString("password")
		}
		if len(staticURLs) == 0 {
			staticURLs = viper.GetStringSlice("static_urls")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.pmesh/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&directoryURL, "directory", "", "Directory service URL (env PMESH_DIRECTORY_URL)")
	rootCmd.PersistentFlags().StringVar(&username, "username", "", "mesh username (env PMESH_USERNAME)")
	rootCmd.PersistentFlags().StringVar(&password, "password", "", "mesh password (env PMESH_PASSWORD)")
	rootCmd.PersistentFlags().StringArrayVar(&staticURLs, "static", nil, "static service URL as service=url, repeatable (e.g. configstore=http://cs:8080)")
	rootCmd.PersistentFlags().DurationVar(&requestTimeout, "timeout", 10*time.Second, "per-request timeout")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every request")

	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(objectCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(aclCmd)
	rootCmd.AddCommand(cmdCmd)
	rootCmd.AddCommand(advertiseCmd)
	rootCmd.AddCommand(listenCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)
}

// buildClient assembles a mesh client from the persistent flags.
func buildClient() (*mesh.Client, error) {
	if directoryURL == "" {
		return nil, fmt.Errorf("no directory URL: set --directory, PMESH_DIRECTORY_URL, or directory_url in the config file")
	}

	opts := []mesh.Option{mesh.WithTimeout(requestTimeout)}
	if verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		opts = append(opts, mesh.WithLogger(logger))
	}
	for _, entry := range staticURLs {
		name, serviceURL, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("static URL %q: want service=url", entry)
		}
		svc, err := mesh.ParseServiceType(name)
		if err != nil {
			return nil, err
		}
		opts = append(opts, mesh.WithStaticURL(svc, serviceURL))
	}

	return mesh.New(directoryURL, username, password, opts...)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseScalar interprets a command-line value as JSON, falling back to a
// bare string so users need not quote plain text.
func parseScalar(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}

// parseServiceID accepts a role name (configstore, cmdesc, ...) or a raw
// UUID for services outside the fixed set.
func parseServiceID(s string) (uuid.UUID, error) {
	if svc, err := mesh.ParseServiceType(s); err == nil {
		return svc.UUID(), nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("service %q is neither a role name nor a UUID", s)
	}
	return id, nil
}

func parseAppObject(args []string) (uuid.UUID, uuid.UUID, error) {
	app, err := uuid.Parse(args[0])
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("app %q: %w", args[0], err)
	}
	obj, err := uuid.Parse(args[1])
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("object %q: %w", args[1], err)
	}
	return app, obj, nil
}

// readPayload reads a JSON document from path, or stdin when path is "-".
func readPayload(path string) (json.RawMessage, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("payload is not valid JSON")
	}
	return json.RawMessage(data), nil
}

// ── ping ─────────────────────────────────────────────────────────────────────

// pingRow holds the outcome of probing a single service.
type pingRow struct {
	service mesh.ServiceType
	ping    *mesh.PingResponse
	err     error
}

var pingFormat string

var pingCmd = &cobra.Command{
	Use:   "ping [service ...]",
	Short: "Probe mesh services over their ping endpoints",
	Long: `Ping probes each named service, or every HTTP service when none are named.

A probe runs the full client path: Directory lookup, token acquisition, and
the service's /ping endpoint. Services are probed concurrently:

  pmesh ping
  pmesh ping configstore cmdesc`,
	RunE: runPing,
}

func init() {
	pingCmd.Flags().StringVar(&pingFormat, "format", "text", "Output format: text or json")
}

func runPing(cmd *cobra.Command, args []string) error {
	// The telemetry broker speaks MQTT, so the default set is the HTTP
	// services only.
	services := []mesh.ServiceType{
		mesh.ServiceDirectory,
		mesh.ServiceConfigStore,
		mesh.ServiceAuthentication,
		mesh.ServiceCommandEscalation,
	}
	if len(args) > 0 {
		services = services[:0]
		for _, arg := range args {
			svc, err := mesh.ParseServiceType(arg)
			if err != nil {
				return err
			}
			services = append(services, svc)
		}
	}

	c, err := buildClient()
	if err != nil {
		return err
	}
	ctx := context.Background()

	// Probe all services concurrently.
	resultsCh := make(chan pingRow, len(services))
	for _, svc := range services {
		go func(service mesh.ServiceType) {
			ping, err := c.Ping(ctx, service)
			resultsCh <- pingRow{service: service, ping: ping, err: err}
		}(svc)
	}

	// Collect in input order.
	byService := make(map[mesh.ServiceType]pingRow, len(services))
	for range services {
		r := <-resultsCh
		byService[r.service] = r
	}
	ordered := make([]pingRow, len(services))
	for i, svc := range services {
		ordered[i] = byService[svc]
	}

	var failed int
	for _, r := range ordered {
		if r.err != nil || !r.ping.OK() {
			failed++
		}
	}

	if pingFormat == "json" {
		if err := printPingJSON(ordered); err != nil {
			return err
		}
	} else {
		printPingText(ordered)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d services unreachable", failed, len(services))
	}
	return nil
}

func printPingJSON(results []pingRow) error {
	type jsonRow struct {
		Service string `json:"service"`
		Status  int    `json:"status,omitempty"`
		Content string `json:"content,omitempty"`
		Error   string `json:"error,omitempty"`
	}
	rows := make([]jsonRow, len(results))
	for i, r := range results {
		rows[i] = jsonRow{Service: r.service.String()}
		if r.err != nil {
			rows[i].Error = r.err.Error()
			continue
		}
		rows[i].Status = r.ping.Status
		rows[i].Content = strings.TrimSpace(r.ping.Content)
	}
	return printJSON(rows)
}

func printPingText(results []pingRow) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SERVICE\tSTATUS\tDETAIL")
	for _, r := range results {
		switch {
		case r.err != nil:
			fmt.Fprintf(w, "%s\tdown\t%s\n", r.service, r.err)
		case !r.ping.OK():
			fmt.Fprintf(w, "%s\tHTTP %d\t%s\n", r.service, r.ping.Status, strings.TrimSpace(r.ping.Content))
		default:
			fmt.Fprintf(w, "%s\tok\t%s\n", r.service, strings.TrimSpace(r.ping.Content))
		}
	}
	w.Flush()
}

// ── resolve ──────────────────────────────────────────────────────────────────

var resolveFormat string

var resolveCmd = &cobra.Command{
	Use:   "resolve <service> [service ...]",
	Short: "Show the URLs a service is reachable at",
	Long: `Resolve looks services up the way the client does: static URLs first,
then the Directory. Results from the Directory are cached for the process.

  pmesh resolve configstore
  pmesh resolve directory auth cmdesc`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := buildClient()
		if err != nil {
			return err
		}
		ctx := context.Background()

		type row struct {
			Service string   `json:"service"`
			URLs    []string `json:"urls"`
			Error   string   `json:"error,omitempty"`
		}
		rows := make([]row, 0, len(args))
		for _, arg := range args {
			svc, err := mesh.ParseServiceType(arg)
			if err != nil {
				return err
			}
			urls, err := c.Discovery().Resolve(ctx, svc)
			r := row{Service: svc.String(), URLs: urls}
			if err != nil {
				r.Error = err.Error()
			}
			rows = append(rows, r)
		}

		if resolveFormat == "json" {
			return printJSON(rows)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SERVICE\tURL")
		for _, r := range rows {
			switch {
			case r.Error != "":
				fmt.Fprintf(w, "%s\t(%s)\n", r.Service, r.Error)
			case len(r.URLs) == 0:
				fmt.Fprintf(w, "%s\t(no providers)\n", r.Service)
			default:
				for _, u := range r.URLs {
					fmt.Fprintf(w, "%s\t%s\n", r.Service, u)
				}
			}
		}
		return w.Flush()
	},
}

func init() {
	resolveCmd.Flags().StringVar(&resolveFormat, "format", "text", "Output format: text or json")
}

// ── token ────────────────────────────────────────────────────────────────────

var tokenFormat string

var tokenCmd = &cobra.Command{
	Use:   "token <service>",
	Short: "Acquire a bearer token for a mesh service",
	Long: `Token authenticates against a service's token endpoint and prints the
bearer token, e.g. for use with curl:

  curl -H "Authorization: Bearer $(pmesh token configstore)" ...`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := mesh.ParseServiceType(args[0])
		if err != nil {
			return err
		}
		c, err := buildClient()
		if err != nil {
			return err
		}

		tok, err := c.Token(context.Background(), svc)
		if err != nil {
			return fmt.Errorf("acquire token: %w", err)
		}

		if tokenFormat == "json" {
			return printJSON(map[string]any{
				"service": svc.String(),
				"token":   tok.Value,
				"expiry":  tok.Expiry,
			})
		}
		fmt.Println(tok.Value)
		if tok.Expiry > 0 {
			fmt.Fprintf(os.Stderr, "expires %s\n", time.Unix(tok.Expiry, 0).Format(time.RFC3339))
		}
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenFormat, "format", "text", "Output format: text or json")
}

// ── config ───────────────────────────────────────────────────────────────────

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Read and write ConfigStore documents",
	Long: `config manipulates per-application configuration documents.

Documents are addressed by application UUID and object UUID; bodies are
arbitrary JSON:

  pmesh config get  <app> <object>
  pmesh config put  <app> <object> settings.json
  echo '{"interval":5}' | pmesh config patch <app> <object> -`,
}

var configGetCmd = &cobra.Command{
	Use:   "get <app-uuid> <object-uuid>",
	Short: "Fetch one configuration document",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, obj, err := parseAppObject(args)
		if err != nil {
			return err
		}
		c, err := buildClient()
		if err != nil {
			return err
		}

		var doc json.RawMessage
		if err := c.ConfigStore().GetConfig(context.Background(), app, obj, &doc); err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := json.Indent(&buf, doc, "", "  "); err != nil {
			return err
		}
		fmt.Println(buf.String())
		return nil
	},
}

var configPutCmd = &cobra.Command{
	Use:   "put <app-uuid> <object-uuid> [file]",
	Short: "Replace a configuration document (stdin when file is - or omitted)",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, obj, err := parseAppObject(args)
		if err != nil {
			return err
		}
		source := "-"
		if len(args) == 3 {
			source = args[2]
		}
		doc, err := readPayload(source)
		if err != nil {
			return err
		}
		c, err := buildClient()
		if err != nil {
			return err
		}

		if err := c.ConfigStore().PutConfig(context.Background(), app, obj, doc); err != nil {
			return err
		}
		fmt.Printf("✓ wrote config for %s\n", obj)
		return nil
	},
}

var configPatchCmd = &cobra.Command{
	Use:   "patch <app-uuid> <object-uuid> [file]",
	Short: "Merge-patch a configuration document (stdin when file is - or omitted)",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, obj, err := parseAppObject(args)
		if err != nil {
			return err
		}
		source := "-"
		if len(args) == 3 {
			source = args[2]
		}
		patch, err := readPayload(source)
		if err != nil {
			return err
		}
		c, err := buildClient()
		if err != nil {
			return err
		}

		if err := c.ConfigStore().PatchConfig(context.Background(), app, obj, patch); err != nil {
			return err
		}
		fmt.Printf("✓ patched config for %s\n", obj)
		return nil
	},
}

var configDeleteCmd = &cobra.Command{
	Use:   "delete <app-uuid> <object-uuid>",
	Short: "Delete a configuration document",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, obj, err := parseAppObject(args)
		if err != nil {
			return err
		}
		c, err := buildClient()
		if err != nil {
			return err
		}

		if err := c.ConfigStore().DeleteConfig(context.Background(), app, obj); err != nil {
			return err
		}
		fmt.Printf("✓ deleted config for %s\n", obj)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list <app-uuid>",
	Short: "List the objects holding a document under an application",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("app %q: %w", args[0], err)
		}
		c, err := buildClient()
		if err != nil {
			return err
		}

		ids, err := c.ConfigStore().Search(context.Background(), app, nil, nil)
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configPutCmd)
	configCmd.AddCommand(configPatchCmd)
	configCmd.AddCommand(configDeleteCmd)
	configCmd.AddCommand(configListCmd)
}

// ── object ───────────────────────────────────────────────────────────────────

var (
	objectExclusive bool
	objectForce     bool
)

var objectCmd = &cobra.Command{
	Use:   "object",
	Short: "Manage entries in the ConfigStore object registry",
}

var objectCreateCmd = &cobra.Command{
	Use:   "create <class-uuid> [uuid]",
	Short: "Register an object, minting a UUID unless one is given",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		class, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("class %q: %w", args[0], err)
		}
		obj := uuid.Nil
		if len(args) == 2 {
			if obj, err = uuid.Parse(args[1]); err != nil {
				return fmt.Errorf("object %q: %w", args[1], err)
			}
		}
		c, err := buildClient()
		if err != nil {
			return err
		}

		created, err := c.ConfigStore().CreateObject(context.Background(), class, obj, objectExclusive)
		if err != nil {
			return err
		}
		fmt.Println(created)
		return nil
	},
}

var objectDeleteCmd = &cobra.Command{
	Use:   "delete <object-uuid>",
	Short: "Remove an object from the registry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		obj, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("object %q: %w", args[0], err)
		}

		if !objectForce {
			fmt.Printf("This removes object %s from the registry. Confirm? [y/N]: ", obj)
			reader := bufio.NewReader(os.Stdin)
			answer, _ := reader.ReadString('\n')
			if strings.ToLower(strings.TrimSpace(answer)) != "y" {
				fmt.Println("Aborted.")
				return nil
			}
		}

		c, err := buildClient()
		if err != nil {
			return err
		}
		if err := c.ConfigStore().DeleteObject(context.Background(), obj); err != nil {
			return err
		}
		fmt.Printf("✓ object deleted: %s\n", obj)
		return nil
	},
}

func init() {
	objectCreateCmd.Flags().BoolVar(&objectExclusive, "exclusive", false, "Fail when the object already exists")
	objectDeleteCmd.Flags().BoolVar(&objectForce, "force", false, "Skip confirmation prompt")

	objectCmd.AddCommand(objectCreateCmd)
	objectCmd.AddCommand(objectDeleteCmd)
}

// ── search ───────────────────────────────────────────────────────────────────

var (
	searchClass   string
	searchResolve bool
)

var searchCmd = &cobra.Command{
	Use:   "search <app-uuid> [key=value ...]",
	Short: "Search configuration documents by value",
	Long: `Search returns the objects whose document under the application matches
every filter. Values are JSON; bare words are matched as strings:

  pmesh search <app> name="Line 4 PLC"
  pmesh search <app> --class <class> enabled=true
  pmesh search <app> name=conveyor --resolve`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("app %q: %w", args[0], err)
		}

		var where map[string]any
		if len(args) > 1 {
			where = make(map[string]any, len(args)-1)
			for _, arg := range args[1:] {
				key, raw, ok := strings.Cut(arg, "=")
				if !ok || key == "" {
					return fmt.Errorf("filter %q: want key=value", arg)
				}
				where[key] = parseScalar(raw)
			}
		}

		var class *uuid.UUID
		if searchClass != "" {
			cls, err := uuid.Parse(searchClass)
			if err != nil {
				return fmt.Errorf("class %q: %w", searchClass, err)
			}
			class = &cls
		}

		c, err := buildClient()
		if err != nil {
			return err
		}
		ctx := context.Background()

		if searchResolve {
			obj, err := c.ConfigStore().Resolve(ctx, app, class, where)
			if err != nil {
				return err
			}
			fmt.Println(obj)
			return nil
		}

		ids, err := c.ConfigStore().Search(ctx, app, class, where)
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchClass, "class", "", "Restrict the search to one object class")
	searchCmd.Flags().BoolVar(&searchResolve, "resolve", false, "Require exactly one match and print it")
}

// ── acl ──────────────────────────────────────────────────────────────────────

var (
	aclByUUID bool
	aclFormat string
)

var aclCmd = &cobra.Command{
	Use:   "acl <principal> <permission-uuid>",
	Short: "List the access control entries granted to a principal",
	Long: `acl fetches a principal's entries for one permission. The principal is a
Kerberos-style name by default; pass --by-uuid to look up by object UUID.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		perm, err := uuid.Parse(args[1])
		if err != nil {
			return fmt.Errorf("permission %q: %w", args[1], err)
		}
		c, err := buildClient()
		if err != nil {
			return err
		}

		entries, err := c.Auth().ACL(context.Background(), args[0], perm, aclByUUID)
		if err != nil {
			return err
		}

		if aclFormat == "json" {
			return printJSON(entries)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PERMISSION\tTARGET")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\n", e.Permission, e.Target)
		}
		return w.Flush()
	},
}

func init() {
	aclCmd.Flags().BoolVar(&aclByUUID, "by-uuid", false, "Treat the principal as an object UUID")
	aclCmd.Flags().StringVar(&aclFormat, "format", "text", "Output format: text or json")
}

// ── cmd ──────────────────────────────────────────────────────────────────────

var cmdCmd = &cobra.Command{
	Use:   "cmd",
	Short: "Send device commands through the escalation service",
}

var cmdSendCmd = &cobra.Command{
	Use:   "send <address> <name> <type> <value>",
	Short: "Send one command to a node or device",
	Long: `Send escalates a command to the addressed node or device. The value is
JSON; bare words are sent as strings:

  pmesh cmd send Plant/Cell1/Pump "Outputs/Run" Boolean true
  pmesh cmd send Plant/Cell1 "Node Control/Scan Rate" Int32 1000`,
	Args: cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := address.Parse(args[0])
		if err != nil {
			return err
		}
		c, err := buildClient()
		if err != nil {
			return err
		}

		command := mesh.Command{Name: args[1], Type: args[2], Value: parseScalar(args[3])}
		if err := c.CmdEsc().IssueCommand(context.Background(), addr, command); err != nil {
			return err
		}
		fmt.Printf("✓ sent %q to %s\n", command.Name, addr)
		return nil
	},
}

var cmdRebirthCmd = &cobra.Command{
	Use:   "rebirth <address>",
	Short: "Ask a node or device to republish its birth certificate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := address.Parse(args[0])
		if err != nil {
			return err
		}
		c, err := buildClient()
		if err != nil {
			return err
		}

		if err := c.CmdEsc().Rebirth(context.Background(), addr); err != nil {
			return err
		}
		fmt.Printf("✓ rebirth requested for %s\n", addr)
		return nil
	},
}

func init() {
	cmdCmd.AddCommand(cmdSendCmd)
	cmdCmd.AddCommand(cmdRebirthCmd)
}

// ── advertise ────────────────────────────────────────────────────────────────

var advertiseCmd = &cobra.Command{
	Use:   "advertise <service> <url>",
	Short: "Publish a provider URL in the Directory",
	Long: `Advertise registers a URL under a service identity. The service may be a
role name (configstore, cmdesc, ...) or a raw UUID:

  pmesh advertise configstore http://cs.plant.example:8080`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseServiceID(args[0])
		if err != nil {
			return err
		}
		c, err := buildClient()
		if err != nil {
			return err
		}

		if err := c.Directory().Advertise(context.Background(), id, args[1]); err != nil {
			return err
		}
		fmt.Printf("✓ advertised %s for %s\n", args[1], args[0])
		return nil
	},
}

// ── listen ───────────────────────────────────────────────────────────────────

var (
	listenClientID string
	listenFormat   string
)

var listenCmd = &cobra.Command{
	Use:   "listen <topic ...>",
	Short: "Stream telemetry messages to stdout",
	Long: `Listen connects to the telemetry broker and prints every message matching
the given topics until interrupted. Topics use the spBv1.0 namespace with +
as a wildcard segment:

  pmesh listen "spBv1.0/Plant/DATA/+/+"
  pmesh listen "spBv1.0/Plant/BIRTH/Cell1" "spBv1.0/Plant/DEATH/Cell1"

Arguments that do not parse as topics are passed to the broker as raw
subscription filters.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runListen,
}

func init() {
	listenCmd.Flags().StringVar(&listenClientID, "client-id", "", "MQTT client ID (default pmesh-<random>)")
	listenCmd.Flags().StringVar(&listenFormat, "format", "text", "Output format: text or json")
}

func runListen(cmd *cobra.Command, args []string) error {
	c, err := buildClient()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clientID := listenClientID
	if clientID == "" {
		clientID = "pmesh-" + uuid.NewString()[:8]
	}

	stream, err := c.Telemetry().Connect(ctx, clientID, nil)
	if err != nil {
		return fmt.Errorf("connect telemetry: %w", err)
	}
	defer stream.Close()

	for _, arg := range args {
		var subErr error
		if topic, parseErr := address.ParseTopic(arg); parseErr == nil {
			subErr = stream.Subscribe(ctx, topic)
		} else {
			subErr = stream.SubscribeFilter(ctx, arg)
		}
		if subErr != nil {
			return fmt.Errorf("subscribe %q: %w", arg, subErr)
		}
		fmt.Fprintf(os.Stderr, "subscribed %s\n", arg)
	}

	for {
		select {
		case msg, ok := <-stream.Messages():
			if !ok {
				return fmt.Errorf("telemetry stream closed")
			}
			printTelemetry(msg)
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr, "stopping")
			return nil
		}
	}
}

func printTelemetry(msg mesh.Message) {
	payload, _ := msg.Payload.([]byte)
	if listenFormat == "json" {
		_ = printJSON(map[string]any{
			"time":    time.Now().UTC().Format(time.RFC3339Nano),
			"topic":   msg.Topic.String(),
			"payload": string(payload),
		})
		return
	}
	fmt.Printf("%s  %s  %s\n", time.Now().Format("15:04:05.000"), msg.Topic, payload)
}

// ── watch ────────────────────────────────────────────────────────────────────

var (
	watchInterval  time.Duration
	watchThreshold int
)

var watchCmd = &cobra.Command{
	Use:   "watch [service ...]",
	Short: "Monitor mesh service health continuously",
	Long: `Watch probes the named services (or every HTTP service) on an interval
and reports when one crosses the failure threshold in either direction.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 30*time.Second, "Probe interval")
	watchCmd.Flags().IntVar(&watchThreshold, "threshold", 3, "Consecutive failures before a service is reported degraded")
}

func runWatch(cmd *cobra.Command, args []string) error {
	services := []mesh.ServiceType{
		mesh.ServiceDirectory,
		mesh.ServiceConfigStore,
		mesh.ServiceAuthentication,
		mesh.ServiceCommandEscalation,
	}
	if len(args) > 0 {
		services = services[:0]
		for _, arg := range args {
			svc, err := mesh.ParseServiceType(arg)
			if err != nil {
				return err
			}
			services = append(services, svc)
		}
	}

	c, err := buildClient()
	if err != nil {
		return err
	}

	mon := mesh.NewMonitor(c, mesh.MonitorConfig{
		Services:      services,
		Interval:      watchInterval,
		FailThreshold: watchThreshold,
	})
	mon.SetTransitionFunc(func(service mesh.ServiceType, healthy bool, failCount int) {
		stamp := time.Now().Format("15:04:05")
		if healthy {
			fmt.Printf("%s  ✓ %s recovered\n", stamp, service)
		} else {
			fmt.Printf("%s  ✗ %s degraded after %d failed probes\n", stamp, service, failCount)
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mon.CheckAll(ctx)
	printHealthTable(mon.Status())
	fmt.Printf("\nwatching every %s, Ctrl-C to stop\n\n", watchInterval)

	mon.Start(ctx)
	return nil
}

func printHealthTable(statuses map[mesh.ServiceType]mesh.ServiceHealth) {
	services := make([]mesh.ServiceType, 0, len(statuses))
	for svc := range statuses {
		services = append(services, svc)
	}
	sort.Slice(services, func(i, j int) bool { return services[i] < services[j] })

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SERVICE\tHEALTHY\tFAILS\tLAST PROBE")
	for _, svc := range services {
		st := statuses[svc]
		fmt.Fprintf(w, "%s\t%t\t%d\t%s\n", svc, st.Healthy, st.FailCount, st.LastProbe.Format(time.RFC3339))
	}
	w.Flush()
}

// ── version ──────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the pmesh CLI version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pmesh %s (PlantMesh)\n", version)
	},
}
