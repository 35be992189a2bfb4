package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/chris/anchor/config"
	"github.com/chris/anchor/internal/agent"
	"github.com/chris/anchor/internal/history"
)

const prompt = "anchor> "

func runChat(ctx context.Context, cfg *config.Config, patientID string, in *os.File, out io.Writer) error {
	d, err := newDeps(cfg)
	if err != nil {
		return err
	}
	defer d.db.Close()

	interactive := isatty.IsTerminal(in.Fd()) || isatty.IsCygwinTerminal(in.Fd())
	return chatLoop(ctx, d.agent, patientID, in, out, interactive, cfg.HistoryLimit)
}

// chatLoop reads one message per line. Piped input gets a single exchange
// and no prompt.
func chatLoop(ctx context.Context, ag *agent.Agent, patientID string, in io.Reader, out io.Writer, interactive bool, limit int) error {
	scanner := bufio.NewScanner(in)
	buf := history.NewBuffer(limit)

	if interactive {
		fmt.Fprint(out, prompt)
	}
	for scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			if interactive {
				fmt.Fprint(out, prompt)
			}
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}

		reply, err := ag.Run(ctx, patientID, buf.Turns(), input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		} else {
			fmt.Fprintln(out, reply)
			buf.Append(
				history.Turn{Role: "user", Content: input},
				history.Turn{Role: "assistant", Content: reply},
			)
		}

		if !interactive {
			break
		}
		fmt.Fprint(out, prompt)
	}
	return scanner.Err()
}
