// ABOUTME: Terminal client for a nestbox server
// ABOUTME: Manages the local session record and drives the resource API

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/2389/nestbox/internal/client"
)

const usage = `Usage: nestbox-cli <command> [args]

Commands:
  register                      create an account (interactive)
  login <email>                 log in (password prompted)
  logout                        discard the local session
  whoami                        show the current session
  browse                        list every user's posts (no login needed)
  posts                         list your posts
  post <title> <body>           create a post
  comments <postId>             list comments on one of your posts
  comment <postId> <name> <email> <body>
                                add a comment to one of your posts
  todos                         list your todos
  todo <title>                  create a todo
  done <todoId>                 mark a todo completed
  rm <type> <id> [subtype subId]
                                delete a record (posts cascade their comments)
`

// sessionPath returns where the session record lives.
// Priority: NESTBOX_SESSION env var > XDG_CONFIG_HOME/nestbox/session.toml > ~/.config/nestbox/session.toml
func sessionPath() string {
	if envPath := os.Getenv("NESTBOX_SESSION"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "session.toml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "nestbox", "session.toml")
}

func serverURL() string {
	if url := os.Getenv("NESTBOX_SERVER"); url != "" {
		return url
	}
	return "http://localhost:8080"
}

func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	pw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

func promptLine(reader *bufio.Reader, prompt string) string {
	fmt.Print(prompt)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(1)
	}

	c := client.New(serverURL(), client.NewSessionStore(sessionPath()))
	c.OnReauth(func() {
		color.Yellow("Your session has expired. Please login again.")
	})

	ctx := context.Background()
	if err := runCommand(ctx, c, os.Args[1], os.Args[2:]); err != nil {
		if errors.Is(err, client.ErrSessionExpired) {
			// The reauth hook already told the user what to do
			os.Exit(1)
		}
		color.Red("error: %v", err)
		os.Exit(1)
	}
}

func runCommand(ctx context.Context, c *client.Client, cmd string, args []string) error {
	switch cmd {
	case "register":
		return cmdRegister(ctx, c)
	case "login":
		if len(args) != 1 {
			return fmt.Errorf("usage: login <email>")
		}
		return cmdLogin(ctx, c, args[0])
	case "logout":
		if err := c.Logout(); err != nil {
			return err
		}
		color.Green("Logged out.")
		return nil
	case "whoami":
		return cmdWhoami(c)
	case "browse":
		return cmdBrowse(ctx, c)
	case "posts":
		return listResources(ctx, c, client.Ref{Type: "posts"}, "title")
	case "post":
		if len(args) != 2 {
			return fmt.Errorf("usage: post <title> <body>")
		}
		return createResource(ctx, c, client.Ref{Type: "posts"},
			map[string]any{"title": args[0], "body": args[1]})
	case "comments":
		if len(args) != 1 {
			return fmt.Errorf("usage: comments <postId>")
		}
		return listResources(ctx, c,
			client.Ref{Type: "posts", ID: args[0], Subtype: "comments"}, "body")
	case "comment":
		if len(args) != 4 {
			return fmt.Errorf("usage: comment <postId> <name> <email> <body>")
		}
		return createResource(ctx, c,
			client.Ref{Type: "posts", ID: args[0], Subtype: "comments"},
			map[string]any{"name": args[1], "email": args[2], "body": args[3]})
	case "todos":
		return listResources(ctx, c, client.Ref{Type: "todos"}, "title")
	case "todo":
		if len(args) != 1 {
			return fmt.Errorf("usage: todo <title>")
		}
		return createResource(ctx, c, client.Ref{Type: "todos"},
			map[string]any{"title": args[0], "completed": false})
	case "done":
		if len(args) != 1 {
			return fmt.Errorf("usage: done <todoId>")
		}
		_, err := c.Update(ctx, client.Ref{Type: "todos", ID: args[0]},
			map[string]any{"completed": true})
		if err != nil {
			return err
		}
		color.Green("Done.")
		return nil
	case "rm":
		if len(args) != 2 && len(args) != 4 {
			return fmt.Errorf("usage: rm <type> <id> [subtype subId]")
		}
		ref := client.Ref{Type: args[0], ID: args[1]}
		if len(args) == 4 {
			ref.Subtype = args[2]
			ref.SubID = args[3]
		}
		if err := c.Delete(ctx, ref); err != nil {
			return err
		}
		color.Green("Deleted.")
		return nil
	default:
		fmt.Print(usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdRegister(ctx context.Context, c *client.Client) error {
	reader := bufio.NewReader(os.Stdin)
	params := client.RegisterParams{
		UserName:    promptLine(reader, "Name: "),
		Email:       promptLine(reader, "Email: "),
		PhoneNumber: promptLine(reader, "Phone: "),
		Website:     promptLine(reader, "Website: "),
	}

	password, err := promptPassword("Password: ")
	if err != nil {
		return err
	}
	params.Password = password

	sess, err := c.Register(ctx, params)
	if err != nil {
		return err
	}
	color.Green("Registered and logged in as %s (%s)", sess.Name, sess.Email)
	return nil
}

func cmdLogin(ctx context.Context, c *client.Client, email string) error {
	password, err := promptPassword("Password: ")
	if err != nil {
		return err
	}

	sess, err := c.Login(ctx, email, password)
	if err != nil {
		return err
	}
	color.Green("Logged in as %s (%s)", sess.Name, sess.Email)
	return nil
}

func cmdWhoami(c *client.Client) error {
	sess, err := c.Session()
	if err != nil {
		return err
	}
	if sess == nil {
		fmt.Println("Not logged in.")
		return nil
	}
	fmt.Printf("%s <%s> %s\n", sess.Name, sess.Email, sess.Website)
	return nil
}

func cmdBrowse(ctx context.Context, c *client.Client) error {
	posts, err := c.BrowsePosts(ctx)
	if err != nil {
		return err
	}
	for _, p := range posts {
		title, _ := p["title"].(string)
		body, _ := p["body"].(string)
		color.Cyan("%s  %s", p.ID(), title)
		fmt.Println("  " + body)
	}
	return nil
}

func listResources(ctx context.Context, c *client.Client, ref client.Ref, label string) error {
	items, err := c.List(ctx, ref)
	if err != nil {
		return err
	}
	for _, item := range items {
		text, _ := item[label].(string)
		if done, ok := item["completed"].(bool); ok && done {
			color.Green("%s  [x] %s", item.ID(), text)
			continue
		}
		fmt.Printf("%s  %s\n", item.ID(), text)
	}
	return nil
}

func createResource(ctx context.Context, c *client.Client, ref client.Ref, fields map[string]any) error {
	item, err := c.Create(ctx, ref, fields)
	if err != nil {
		return err
	}
	color.Green("Created %s", item.ID())
	return nil
}
