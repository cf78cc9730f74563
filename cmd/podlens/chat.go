package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/podlens/podlens/internal/api"
	"github.com/podlens/podlens/internal/session"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	Long: `Start an interactive conversation. Each question is answered in the
context of the ones before it, up to five messages per conversation.

Commands inside the chat:
  /new    archive the transcript and start a fresh conversation
  /quit   archive the transcript and exit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, _, _, err := newSession()
		if err != nil {
			return err
		}

		fmt.Println(colorize(colorBold, "podlens chat") + " — ask about any episode. /new starts over, /quit exits.")
		fmt.Println(counterLine(sess))

		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), 64*1024)

		for {
			fmt.Print(prompt(sess))
			if !scanner.Scan() {
				break
			}
			line := strings.TrimSpace(scanner.Text())

			switch line {
			case "":
				continue
			case "/quit", "/exit":
				return archiveSession(sess)
			case "/new":
				if err := startFresh(cmd, sess); err != nil {
					return err
				}
				continue
			}

			resp, err := sess.Submit(cmd.Context(), line)
			if err != nil {
				handleChatError(sess, err)
				if sess.State() == session.StateRateLimited {
					return archiveSession(sess)
				}
				continue
			}

			fmt.Println(renderAnswer(resp))
			fmt.Println(counterLine(sess))

			if sess.State() == session.StateExhausted {
				printWarning("Conversation limit reached. /new starts a fresh one.")
			}
		}

		if err := scanner.Err(); err != nil {
			return fmt.Errorf("reading input: %w", err)
		}
		return archiveSession(sess)
	},
}

// prompt reflects the session state: input stays visible but the prompt
// shows when submissions are blocked.
func prompt(sess *session.Session) string {
	switch sess.State() {
	case session.StateRateLimited:
		return colorize(colorDim, "(rate limited) > ")
	case session.StateExhausted:
		return colorize(colorDim, "(conversation full) > ")
	default:
		return colorize(colorBold, "> ")
	}
}

func startFresh(cmd *cobra.Command, sess *session.Session) error {
	snap := sess.Snapshot()

	if err := sess.NewConversation(cmd.Context()); err != nil {
		switch {
		case errors.Is(err, session.ErrNoConversations):
			printWarning("No new conversations left today.")
		default:
			printError("%s", api.UserMessage(err))
		}
		return nil
	}

	if len(snap.Messages) > 0 {
		archiveSnapshot(snap)
	}
	printSuccess("Started a fresh conversation.")
	fmt.Println(counterLine(sess))
	return nil
}

func handleChatError(sess *session.Session, err error) {
	switch {
	case errors.Is(err, session.ErrEmptyQuery):
		return
	case errors.Is(err, session.ErrConversationFull):
		printWarning("Conversation limit reached. /new starts a fresh one.")
	case errors.Is(err, session.ErrNoQueries), api.IsRateLimited(err):
		printError("Daily query limit reached. Come back tomorrow!")
	case errors.Is(err, session.ErrBusy):
		printWarning("Still waiting on the previous question.")
	default:
		printError("%s", api.UserMessage(err))
	}
}
