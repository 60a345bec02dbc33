package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/drawlapp/drawl/internal/speech"
	"github.com/drawlapp/drawl/pkg/narrate"
)

var playCmd = &cobra.Command{
	Use:   "play WAV...",
	Short: "Play WAV files through the narration queue",
	Long:  paragraph(fmt.Sprintf("\n%s WAV files in order through the narration pipeline, ambient bed and ducking included. Handy for auditioning stroke samples.", keyword("Play"))),
	Args:  cobra.MinimumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		st, err := buildStack(false)
		if err != nil {
			return err
		}
		defer st.close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		handles := make([]*narrate.Handle, 0, len(args))
		for _, arg := range args {
			handles = append(handles, st.queue.Submit(speech.File(expandPath(arg))))
		}
		return speakAll(ctx, st.queue, handles)
	},
}
