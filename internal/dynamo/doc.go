// Package dynamo provides the primitives shared by every experimental
// component: basic-coordinate vectors, channel size records and the error
// taxonomy.
//
//   - [Vector]: one quantity (disp, vel, accel, force) in basic coordinates
//   - [Sizes]: channels per quantity negotiated between component and site
//   - [ConfigError]: configuration failure carrying element id and quantity
//
// Sizes are always ordered {disp, vel, accel, force, time}, which is also the
// order used on the wire.
package dynamo
