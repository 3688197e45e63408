/*
Package ports defines the driven ports (interfaces) of the reply assistant.

These interfaces decouple the flow engine from external implementations, allowing
it to work with various storage backends, host pages and outbound services.

# Key Interfaces

  - KVStore: key-value persistence behind the template library (memory, file, redis, sqlite).
  - StateStore: holds conversation states for the lifetime of the process.
  - Catalog: read access to flows and templates for the engine.
  - HostPage: samples the host page and inserts drafts into its compose box.
  - Translator / Refiner: optional outbound rewrites of drafted text.
*/
package ports
