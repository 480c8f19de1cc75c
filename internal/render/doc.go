// Package render drives the Chromium instance that draws the captured page.
//
// The browser is launched against the session's virtual display over the
// DevTools protocol. The lightweight tier installs a request-admission policy
// that drops images and video fetches while letting markup, scripts, styles,
// fonts, and audio through, so page layout and sound survive on a fraction of
// the bandwidth. The playback-trigger interaction is an ordered list of
// strategies; whatever happens there is logged and never fails the session,
// because plenty of pages autoplay without any trigger.
package render
