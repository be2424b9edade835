// Command slimctl is a small companion CLI that dials a running slimd and
// either prints its handshake banner or fetches its admin /stats endpoint.
// Structured after the teacher's kr/kr.go urfave/cli app.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/urfave/cli"

	"github.com/slimfix/slimd/internal/color"
)

func main() {
	app := cli.NewApp()
	app.Name = "slimctl"
	app.Usage = "inspect a running slimd"
	app.Commands = []cli.Command{
		{
			Name:   "ping",
			Usage:  "slimctl ping <addr> -- connect and print the handshake banner",
			Action: pingCommand,
		},
		{
			Name:   "stats",
			Usage:  "slimctl stats <admin-addr> -- fetch /stats from a running slimd",
			Action: statsCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, color.Red(err.Error()))
		os.Exit(1)
	}
}

func pingCommand(c *cli.Context) error {
	addr := c.Args().First()
	if addr == "" {
		return fmt.Errorf("slimctl: ping requires an address")
	}
	conn, err := net.DialTimeout("tcp", addr, 3*time.Second)
	if err != nil {
		return fmt.Errorf("slimctl: dialing %s: %w", addr, err)
	}
	defer conn.Close()

	banner, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return fmt.Errorf("slimctl: reading handshake: %w", err)
	}
	fmt.Println(color.Green(fmt.Sprintf("%s -> %q", addr, banner)))
	return nil
}

func statsCommand(c *cli.Context) error {
	adminAddr := c.Args().First()
	if adminAddr == "" {
		return fmt.Errorf("slimctl: stats requires an admin address")
	}
	client := http.Client{Timeout: 3 * time.Second}
	resp, err := client.Get("http://" + adminAddr + "/stats")
	if err != nil {
		return fmt.Errorf("slimctl: fetching stats: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slimctl: %s", color.Yellow(resp.Status))
	}

	var snapshot map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return fmt.Errorf("slimctl: decoding stats: %w", err)
	}
	for k, v := range snapshot {
		fmt.Printf("%s: %v\n", color.Cyan(k), v)
	}
	return nil
}
