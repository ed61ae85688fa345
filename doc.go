// Package nameplate renders the material maps of an engraved wooden plate.
//
// # Overview
//
// A personalization request (text, font family, nominal font size and a
// decorative frame texture) is turned into three maps that drive a
// physically based material:
//
//   - bump: black background, the frame image, and the text in white
//   - albedo: wood grain multiplied with the bump map
//   - roughness: the bump map again, inverted and remixed in the shader
//
// The maps are drawn with the gg 2D canvas and published to a single
// material whose bindings are swapped atomically, so a render loop can
// sample it every frame while updates are in flight.
//
// # Quick Start
//
//	cfg := config.Default()
//	s, err := session.New(cfg)
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	if _, err := s.Start(ctx); err != nil {
//	    return err
//	}
//	res, err := s.OnUpdateRequested(ctx, "AB", "sans-serif", 120, "")
//
// # Packages
//
// The pipeline is split leaf-first:
//   - request: immutable snapshot of the user's input
//   - imagecache: frame and wood image slots with future-returning loads
//   - fonts: font families, spacing table and glyph availability
//   - fontgate: polls glyph availability with a bounded timeout
//   - layout: one-glyph-per-row vertical layout
//   - compose: bump and albedo synthesis
//   - material: texture upload, disposal and the roughness patch
//   - session: owns all of the above and runs the pipeline
//
// config loads the TOML configuration, preview streams material updates to
// WebSocket viewers, and cmd/nameplate wraps everything in a command.
//
// # Logging
//
// nameplate is silent by default. Call [SetLogger] to enable diagnostics.
package nameplate
