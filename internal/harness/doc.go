// Package harness runs conformance scenarios against the generator.
//
// A scenario compiles a set of CUE declaration files, runs a generation
// pass, checks assertions on the emitted units and the pass report, and
// then applies further steps that edit or remove files, each followed by
// another pass and its own assertions.
//
// # Scenario Format
//
//	name: position_game
//	description: "Position joins Game and gets an entity extension"
//	specs:
//	  - specs/components.cue
//	  - specs/contexts.cue
//	assertions:
//	  - type: unit_contains
//	    unit: Demo.Game.Demo.PositionComponent.Entity.g.cs
//	    text: ["SetPosition(this GameEntity entity, float x, float y)"]
//	  - type: pass_count
//	    field: malformed
//	    count: 0
//	steps:
//	  - name: idle
//	    update:
//	      - file: specs/components.cue
//	        from: specs/components.cue
//	    assertions:
//	      - type: pass_count
//	        field: rendered
//	        count: 0
//
// Spec and step paths are relative to the scenario file unless a base path
// is given. Source files keep the names written in the scenario, so unit
// content never depends on where the scenario lives.
//
// # Assertion Types
//
//   - unit_exists, unit_absent: a unit identity is or is not emitted
//   - unit_contains: a unit contains every listed text
//   - unit_failed: a unit was emitted as a failure comment
//   - unit_count: the number of emitted units
//   - malformed: a declaration was reported malformed
//   - pass_count: a pass report counter has an exact value
//
// # Deterministic Testing
//
// Every scenario runs against a fresh engine and memory sink with a fixed
// pass token, so repeated runs emit identical units. CheckDeterminism
// re-runs a scenario with its spec order reversed and a single worker and
// compares the outputs, and checks that an idle pass renders nothing.
package harness
