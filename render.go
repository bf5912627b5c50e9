package page2cbr

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
)

// fetchRenderedHTML loads the page in a headless browser and returns the DOM
// after scripts have run, with an optional extra settle delay for galleries
// that populate themselves from JS after load.
func fetchRenderedHTML(ctx context.Context, url string, settle time.Duration, userAgent string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
	)
	if userAgent != "" {
		opts = append(opts, chromedp.UserAgent(userAgent))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	actions := []chromedp.Action{chromedp.Navigate(url)}
	if settle > 0 {
		actions = append(actions, chromedp.Sleep(settle))
	}

	var pageHTML string
	actions = append(actions, chromedp.OuterHTML("html", &pageHTML))

	if err := chromedp.Run(browserCtx, actions...); err != nil {
		return "", err
	}

	return pageHTML, nil
}
