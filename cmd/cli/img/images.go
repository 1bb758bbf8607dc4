// Package img holds the CLI commands for generating character artwork.
package img

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image/png"
	"os"

	"github.com/myrjola/sotopia-chat/internal/errors"
	"github.com/myrjola/sotopia-chat/internal/profiles"
	"github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"
)

var Group = &cobra.Group{
	ID:    "img",
	Title: "Image operations",
}

func init() {
	Portrait.Flags().String("dir", "", "profile directory, the bundled demo profiles when empty")
	Portrait.Flags().String("out", "", "path to generated image file, ./<agent_id>.png when empty")
}

var Portrait = &cobra.Command{ //nolint:exhaustruct // rest of the fields are optional
	Use:     "portrait [agent_id]",
	GroupID: "img",
	Short:   "Generate a character portrait",
	Long:    `Generates a chat avatar for an agent profile with Dall-E`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		agentID := args[0]

		dir, err := cmd.Flags().GetString("dir")
		if err != nil {
			return errors.Wrap(err, "read dir flag")
		}
		store := profiles.Embedded()
		if dir != "" {
			store = profiles.NewStore(os.DirFS(dir))
		}
		snapshot, err := store.Load(profiles.DefaultSources)
		if err != nil {
			return errors.Wrap(err, "load profiles")
		}
		agent, err := snapshot.AgentByEndpoint(agentID)
		if err != nil {
			return errors.Wrap(err, "resolve agent")
		}

		prompt := fmt.Sprintf(
			"A friendly illustrated chat avatar of %s. %s Flat colors, simple background.",
			agent.Name, agent.Background)

		client := openai.NewClient(os.Getenv("OPENAI_API_KEY"))
		response, err := client.CreateImage(context.Background(), openai.ImageRequest{ //nolint:exhaustruct // rest of the fields are optional
			Model:          openai.CreateImageModelDallE3,
			Prompt:         prompt,
			Size:           openai.CreateImageSize1024x1024,
			ResponseFormat: openai.CreateImageResponseFormatB64JSON,
			N:              1,
		})
		if err != nil {
			return errors.Wrap(err, "create image")
		}

		imgBytes, err := base64.StdEncoding.DecodeString(response.Data[0].B64JSON)
		if err != nil {
			return errors.Wrap(err, "decode base64 image")
		}
		imgData, err := png.Decode(bytes.NewReader(imgBytes))
		if err != nil {
			return errors.Wrap(err, "decode png")
		}

		outPath, err := cmd.Flags().GetString("out")
		if err != nil {
			return errors.Wrap(err, "read out flag")
		}
		if outPath == "" {
			outPath = fmt.Sprintf("./%s.png", agentID)
		}
		file, err := os.Create(outPath)
		if err != nil {
			return errors.Wrap(err, "create file")
		}
		defer func() {
			_ = file.Close()
		}()
		if err = png.Encode(file, imgData); err != nil {
			return errors.Wrap(err, "encode png")
		}

		cmd.Printf("The portrait was saved as %s\n", outPath)
		return nil
	},
}
