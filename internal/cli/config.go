package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hongminglow/therapy-console/internal/format"
)

func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the chat assistant speech settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.api.SysConfig(cmd.Context())
			if err != nil {
				return fmt.Errorf("get system config: %w", err)
			}
			out := cmd.OutOrStdout()
			asr, tts := cfg.AsrSetting, cfg.TtsSetting
			fmt.Fprintln(out, "Speech recognition")
			fmt.Fprintf(out, "  model:        %s (%s)\n", format.TableEmpty(asr.ModelName), format.TableEmpty(asr.Platform))
			fmt.Fprintf(out, "  max duration: %s\n", format.Duration(asr.MaxRecordDuration))
			fmt.Fprintf(out, "  max file:     %s\n", format.Bytes(asr.MaxFileSize))
			fmt.Fprintln(out, "Speech synthesis")
			fmt.Fprintf(out, "  model:        %s (%s)\n", format.TableEmpty(tts.ModelName), format.TableEmpty(tts.Platform))
			fmt.Fprintf(out, "  side:         %s\n", format.TableEmpty(tts.SynthesizerSide))
			if cfg.ResponseShowType != 0 {
				fmt.Fprintf(out, "Answers shown as %s\n", format.OptionLabel(format.ResponseShowTypeOptions, cfg.ResponseShowType))
			}
			if len(cfg.SearchEngines) > 0 {
				fmt.Fprintln(out, "Search engines")
				for _, se := range cfg.SearchEngines {
					state := "off"
					if se.Enable {
						state = "on"
					}
					fmt.Fprintf(out, "  %-13s %s\n", se.Name, state)
				}
			}
			return nil
		},
	}
}
