// Command docstore is a CLI client for the document store HTTP API.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	u "github.com/gofrs/uuid/v5"
)

// ---- api client ----

type apiClient struct {
	base  string
	actor string
	hc    *http.Client
}

func newClient(base, actor string) *apiClient {
	return &apiClient{
		base:  strings.TrimRight(base, "/"),
		actor: actor,
		hc:    &http.Client{Timeout: 30 * time.Second},
	}
}

type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("api error: status=%d msg=%s", e.Status, e.Message)
}

// do sends one request and decodes the JSON response into out (when non-nil).
// Non-2xx responses become *apiError with the server's error message.
func (c *apiClient) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.actor != "" {
		req.Header.Set("X-Actor-Id", c.actor)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var er struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&er)
		return &apiError{Status: resp.StatusCode, Message: er.Error}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *apiClient) getJSON(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, "", out)
}

func (c *apiClient) sendJSON(ctx context.Context, method, path string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return c.do(ctx, method, path, bytes.NewReader(b), "application/json", out)
}

// multipartArchive builds the form body for the import endpoint.
func multipartArchive(archive []byte, filename string, parentID string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if parentID != "" {
		if err := w.WriteField("parentId", parentID); err != nil {
			return nil, "", err
		}
	}
	fw, err := w.CreateFormFile("archive", filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := fw.Write(archive); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// ---- utils ----

func readAll(p string) ([]byte, error) {
	if p == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(p)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func parseUUID(s, what string) string {
	if _, err := u.FromString(s); err != nil {
		fail(fmt.Errorf("bad %s %q: %w", what, s, err))
	}
	return s
}

func usage() {
	fmt.Fprintf(os.Stderr, `docstore CLI
Usage:
  docstore -addr URL [-actor ID] <cmd> [args]

Commands:
  version
  tree       [-root <uuid>]
  get        -id <uuid>
  content    -id <uuid>
  breadcrumb -id <uuid>
  add        -title <t> -kind FOLDER|DOCUMENT [-parent <uuid>] [-file <content>]
  rename     -id <uuid> -title <t>
  edit       -id <uuid> -file <content>
  mv         -id <uuid> [-parent <uuid>] [-order <n>]
  rm         -id <uuid>
  versions   -id <uuid>
  restore    -id <uuid> -ver <versionId>
  perms      -id <uuid>
  grant      -id <uuid> -group <g> -level READ|WRITE
  revoke     -id <uuid> -group <g>
  import     -file <archive.zip> [-parent <uuid>]
  backup     [-o <file>]
  load       -file <snapshot.json>
`)
	os.Exit(2)
}

// ---- main ----

var (
	version   = "dev"
	buildDate = "unknown"
)

// main dispatches subcommands against the HTTP API.
func main() {
	// global flags
	addr := flag.String("addr", "http://localhost:8080", "server base URL")
	actor := flag.String("actor", os.Getenv("DOCSTORE_ACTOR"), "actor id for write operations")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd := flag.Arg(0)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cli := newClient(*addr, *actor)

	switch cmd {

	case "version":
		fmt.Printf("docstore %s (%s)\n", version, buildDate)

	case "tree":
		fs := flag.NewFlagSet("tree", flag.ExitOnError)
		root := fs.String("root", "", "subtree root id")
		_ = fs.Parse(flag.Args()[1:])
		path := "/api/documents/tree"
		if *root != "" {
			path += "?rootId=" + parseUUID(*root, "root")
		}
		var out any
		if err := cli.getJSON(ctx, path, &out); err != nil {
			fail(err)
		}
		printJSON(out)

	case "get":
		fs := flag.NewFlagSet("get", flag.ExitOnError)
		id := fs.String("id", "", "node id")
		_ = fs.Parse(flag.Args()[1:])
		var out any
		if err := cli.getJSON(ctx, "/api/documents/"+parseUUID(*id, "id"), &out); err != nil {
			fail(err)
		}
		printJSON(out)

	case "content":
		fs := flag.NewFlagSet("content", flag.ExitOnError)
		id := fs.String("id", "", "node id")
		_ = fs.Parse(flag.Args()[1:])
		var out struct {
			Content string `json:"content"`
		}
		if err := cli.getJSON(ctx, "/api/documents/"+parseUUID(*id, "id")+"/content", &out); err != nil {
			fail(err)
		}
		fmt.Println(out.Content)

	case "breadcrumb":
		fs := flag.NewFlagSet("breadcrumb", flag.ExitOnError)
		id := fs.String("id", "", "node id")
		_ = fs.Parse(flag.Args()[1:])
		var out any
		if err := cli.getJSON(ctx, "/api/documents/"+parseUUID(*id, "id")+"/breadcrumb", &out); err != nil {
			fail(err)
		}
		printJSON(out)

	case "add":
		fs := flag.NewFlagSet("add", flag.ExitOnError)
		title := fs.String("title", "", "title")
		kind := fs.String("kind", "DOCUMENT", "FOLDER or DOCUMENT")
		parent := fs.String("parent", "", "parent folder id")
		file := fs.String("file", "", "content file ('-' for stdin)")
		_ = fs.Parse(flag.Args()[1:])
		if *title == "" {
			fmt.Fprintln(os.Stderr, "need -title")
			os.Exit(1)
		}
		body := map[string]any{"title": *title, "kind": *kind}
		if *parent != "" {
			body["parentId"] = parseUUID(*parent, "parent")
		}
		if *file != "" {
			content, err := readAll(*file)
			if err != nil {
				fail(err)
			}
			body["content"] = string(content)
		}
		var out any
		if err := cli.sendJSON(ctx, http.MethodPost, "/api/documents", body, &out); err != nil {
			fail(err)
		}
		printJSON(out)

	case "rename":
		fs := flag.NewFlagSet("rename", flag.ExitOnError)
		id := fs.String("id", "", "node id")
		title := fs.String("title", "", "new title")
		_ = fs.Parse(flag.Args()[1:])
		if *title == "" {
			fmt.Fprintln(os.Stderr, "need -title")
			os.Exit(1)
		}
		var out any
		err := cli.sendJSON(ctx, http.MethodPatch, "/api/documents/"+parseUUID(*id, "id"),
			map[string]string{"title": *title}, &out)
		if err != nil {
			fail(err)
		}
		printJSON(out)

	case "edit":
		fs := flag.NewFlagSet("edit", flag.ExitOnError)
		id := fs.String("id", "", "node id")
		file := fs.String("file", "", "content file ('-' for stdin)")
		_ = fs.Parse(flag.Args()[1:])
		if *file == "" {
			fmt.Fprintln(os.Stderr, "need -file")
			os.Exit(1)
		}
		content, err := readAll(*file)
		if err != nil {
			fail(err)
		}
		var out any
		err = cli.sendJSON(ctx, http.MethodPut, "/api/documents/"+parseUUID(*id, "id")+"/content",
			map[string]string{"content": string(content)}, &out)
		if err != nil {
			fail(err)
		}
		printJSON(out)

	case "mv":
		fs := flag.NewFlagSet("mv", flag.ExitOnError)
		id := fs.String("id", "", "node id")
		parent := fs.String("parent", "", "new parent id (empty for root)")
		order := fs.Int("order", -1, "sort position (-1 for last)")
		_ = fs.Parse(flag.Args()[1:])
		body := map[string]any{}
		if *parent != "" {
			body["newParentId"] = parseUUID(*parent, "parent")
		}
		if *order >= 0 {
			body["newOrder"] = *order
		}
		var out any
		err := cli.sendJSON(ctx, http.MethodPost, "/api/documents/"+parseUUID(*id, "id")+"/move", body, &out)
		if err != nil {
			fail(err)
		}
		printJSON(out)

	case "rm":
		fs := flag.NewFlagSet("rm", flag.ExitOnError)
		id := fs.String("id", "", "node id")
		_ = fs.Parse(flag.Args()[1:])
		var out any
		if err := cli.do(ctx, http.MethodDelete, "/api/documents/"+parseUUID(*id, "id"), nil, "", &out); err != nil {
			fail(err)
		}
		printJSON(out)

	case "versions":
		fs := flag.NewFlagSet("versions", flag.ExitOnError)
		id := fs.String("id", "", "node id")
		_ = fs.Parse(flag.Args()[1:])
		var out any
		if err := cli.getJSON(ctx, "/api/documents/"+parseUUID(*id, "id")+"/versions", &out); err != nil {
			fail(err)
		}
		printJSON(out)

	case "restore":
		fs := flag.NewFlagSet("restore", flag.ExitOnError)
		id := fs.String("id", "", "node id")
		ver := fs.String("ver", "", "version id")
		_ = fs.Parse(flag.Args()[1:])
		var out any
		path := "/api/documents/" + parseUUID(*id, "id") + "/versions/" + parseUUID(*ver, "ver") + "/restore"
		if err := cli.do(ctx, http.MethodPost, path, nil, "", &out); err != nil {
			fail(err)
		}
		printJSON(out)

	case "perms":
		fs := flag.NewFlagSet("perms", flag.ExitOnError)
		id := fs.String("id", "", "node id")
		_ = fs.Parse(flag.Args()[1:])
		var out any
		if err := cli.getJSON(ctx, "/api/documents/"+parseUUID(*id, "id")+"/permissions", &out); err != nil {
			fail(err)
		}
		printJSON(out)

	case "grant":
		fs := flag.NewFlagSet("grant", flag.ExitOnError)
		id := fs.String("id", "", "node id")
		group := fs.String("group", "", "group id")
		level := fs.String("level", "READ", "READ or WRITE")
		_ = fs.Parse(flag.Args()[1:])
		if *group == "" {
			fmt.Fprintln(os.Stderr, "need -group")
			os.Exit(1)
		}
		var out any
		err := cli.sendJSON(ctx, http.MethodPut, "/api/documents/"+parseUUID(*id, "id")+"/permissions",
			map[string]string{"groupId": *group, "level": *level}, &out)
		if err != nil {
			fail(err)
		}
		printJSON(out)

	case "revoke":
		fs := flag.NewFlagSet("revoke", flag.ExitOnError)
		id := fs.String("id", "", "node id")
		group := fs.String("group", "", "group id")
		_ = fs.Parse(flag.Args()[1:])
		if *group == "" {
			fmt.Fprintln(os.Stderr, "need -group")
			os.Exit(1)
		}
		err := cli.do(ctx, http.MethodDelete,
			"/api/documents/"+parseUUID(*id, "id")+"/permissions/"+*group, nil, "", nil)
		if err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "import":
		fs := flag.NewFlagSet("import", flag.ExitOnError)
		file := fs.String("file", "", "zip archive")
		parent := fs.String("parent", "", "parent folder id")
		_ = fs.Parse(flag.Args()[1:])
		if *file == "" {
			fmt.Fprintln(os.Stderr, "need -file")
			os.Exit(1)
		}
		archive, err := readAll(*file)
		if err != nil {
			fail(err)
		}
		parentID := ""
		if *parent != "" {
			parentID = parseUUID(*parent, "parent")
		}
		body, contentType, err := multipartArchive(archive, filepath.Base(*file), parentID)
		if err != nil {
			fail(err)
		}
		var out any
		if err := cli.do(ctx, http.MethodPost, "/api/documents/import", body, contentType, &out); err != nil {
			fail(err)
		}
		printJSON(out)

	case "backup":
		fs := flag.NewFlagSet("backup", flag.ExitOnError)
		out := fs.String("o", "", "output file (stdout when empty)")
		_ = fs.Parse(flag.Args()[1:])
		var snap json.RawMessage
		if err := cli.getJSON(ctx, "/api/backup", &snap); err != nil {
			fail(err)
		}
		if *out == "" {
			fmt.Println(string(snap))
			break
		}
		if err := os.WriteFile(*out, snap, 0o600); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "load":
		fs := flag.NewFlagSet("load", flag.ExitOnError)
		file := fs.String("file", "", "snapshot file ('-' for stdin)")
		_ = fs.Parse(flag.Args()[1:])
		if *file == "" {
			fmt.Fprintln(os.Stderr, "need -file")
			os.Exit(1)
		}
		snap, err := readAll(*file)
		if err != nil {
			fail(err)
		}
		var out any
		err = cli.do(ctx, http.MethodPost, "/api/backup/restore", bytes.NewReader(snap), "application/json", &out)
		if err != nil {
			fail(err)
		}
		printJSON(out)

	default:
		usage()
	}
}

// ---- helpers ----

func fail(err error) {
	var ae *apiError
	if errors.As(err, &ae) {
		fmt.Fprintln(os.Stderr, ae.Error())
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
