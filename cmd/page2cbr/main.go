package main

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/asanchezv/page2cbr"
	"github.com/kennygrant/sanitize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	// Prepare cmd
	cmd := &cobra.Command{
		Use:           "page2cbr [url]",
		Short:         "CLI tool for saving the images of a web page as a comic archive",
		Args:          cobra.ExactArgs(1),
		RunE:          cmdHandler,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().StringP("output", "o", "comic", "output base name, without extension")
	cmd.Flags().StringP("config", "c", "", "path to YAML file with default options")

	cmd.Flags().StringP("user-agent", "u", "", "set custom user agent")
	cmd.Flags().String("referer", "", "Referer header, defaults to the page URL")
	cmd.Flags().String("cookie", "", `raw Cookie header, e.g. "session=...; other=..."`)

	cmd.Flags().IntP("timeout", "t", 30, "maximum time (in second) before request timeout")
	cmd.Flags().Bool("insecure", false, "skip X.509 (TLS) certificate verification")
	cmd.Flags().Int64("max-concurrent-download", 4, "max concurrent download at a time")

	cmd.Flags().Int("max-images", 0, "limit amount of images (0 = unlimited)")
	cmd.Flags().Bool("no-ext-filter", false, "keep candidate URLs without an image extension")
	cmd.Flags().String("rar", "", "explicit path to the rar executable")

	cmd.Flags().Bool("render", false, "fetch HTML through a headless browser (pages built by JS)")
	cmd.Flags().Duration("wait", 0, "extra settle delay after load (only with --render)")

	cmd.Flags().BoolP("quiet", "q", false, "disable logging")
	cmd.Flags().Bool("verbose", false, "more verbose logging")

	// Execute
	if err := cmd.Execute(); err != nil {
		logrus.Errorln(err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps the terminal conditions onto distinct process exit codes.
func exitCode(err error) int {
	switch {
	case errors.Is(err, page2cbr.ErrHTMLSource):
		return 2
	case errors.Is(err, page2cbr.ErrNoCandidates):
		return 3
	case errors.Is(err, page2cbr.ErrNoUsableImages):
		return 4
	}
	return 1
}

func cmdHandler(cmd *cobra.Command, args []string) error {
	// Parse flags
	output, _ := cmd.Flags().GetString("output")
	configPath, _ := cmd.Flags().GetString("config")

	userAgent, _ := cmd.Flags().GetString("user-agent")
	referer, _ := cmd.Flags().GetString("referer")
	cookie, _ := cmd.Flags().GetString("cookie")

	timeout, _ := cmd.Flags().GetInt("timeout")
	skipTLSVerification, _ := cmd.Flags().GetBool("insecure")
	maxConcurrentDownload, _ := cmd.Flags().GetInt64("max-concurrent-download")

	maxImages, _ := cmd.Flags().GetInt("max-images")
	noExtFilter, _ := cmd.Flags().GetBool("no-ext-filter")
	rarPath, _ := cmd.Flags().GetString("rar")

	render, _ := cmd.Flags().GetBool("render")
	renderWait, _ := cmd.Flags().GetDuration("wait")

	disableLog, _ := cmd.Flags().GetBool("quiet")
	useVerboseLog, _ := cmd.Flags().GetBool("verbose")

	// Apply defaults from config file for flags left untouched
	if configPath != "" {
		fileCfg, err := loadFileConfig(configPath)
		if err != nil {
			return err
		}

		if !cmd.Flags().Changed("user-agent") && fileCfg.UserAgent != "" {
			userAgent = fileCfg.UserAgent
		}
		if !cmd.Flags().Changed("timeout") && fileCfg.Timeout > 0 {
			timeout = fileCfg.Timeout
		}
		if !cmd.Flags().Changed("referer") && fileCfg.Referer != "" {
			referer = fileCfg.Referer
		}
		if !cmd.Flags().Changed("cookie") && fileCfg.Cookie != "" {
			cookie = fileCfg.Cookie
		}
		if !cmd.Flags().Changed("rar") && fileCfg.RarPath != "" {
			rarPath = fileCfg.RarPath
		}
		if !cmd.Flags().Changed("max-concurrent-download") && fileCfg.MaxConcurrentDownload > 0 {
			maxConcurrentDownload = fileCfg.MaxConcurrentDownload
		}
	}

	var transport http.RoundTripper
	if skipTLSVerification {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	// Create archiver
	arc := &page2cbr.Archiver{
		UserAgent: userAgent,
		Referer:   referer,
		Cookie:    cookie,

		EnableLog:        !disableLog,
		EnableVerboseLog: !disableLog && useVerboseLog,

		Transport:             transport,
		RequestTimeout:        time.Duration(timeout) * time.Second,
		MaxConcurrentDownload: maxConcurrentDownload,

		MaxImages:        maxImages,
		DisableExtFilter: noExtFilter,
		RarPath:          rarPath,

		RenderHTML: render,
		RenderWait: renderWait,
	}
	arc.Validate()

	result, err := arc.Archive(context.Background(), page2cbr.Request{
		URL:     args[0],
		DstBase: sanitize.BaseName(output),
	})
	if err != nil {
		if errors.Is(err, page2cbr.ErrNoCandidates) && !render {
			logrus.Println("hint: try --render, or --no-ext-filter if the images have no .jpg/.png extension")
		}
		return err
	}

	logrus.Printf("[DONE] generated %s (%s backend)\n", result.ArchivePath, result.Backend)

	// Failed candidates only affect the summary, never the exit code
	if len(result.Failures) > 0 && !disableLog {
		logrus.Printf("some images failed or were skipped:\n")
		for i, failure := range result.Failures {
			if i >= 20 {
				logrus.Printf(" - ... (%d more)\n", len(result.Failures)-20)
				break
			}
			logrus.Printf(" - %s | %v\n", failure.URL, failure.Reason)
		}
	}

	return nil
}
