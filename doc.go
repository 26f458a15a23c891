/*
Package chainload is a dynamic module proxy: a host that loads exactly one native add-on can chain load
and chain unload further native modules at run time through it.

# License

Source codes are under Apache License Version 2.0.

# Underwater

 1. A [Module] owns one acquired [Library]. Acquisition tries the platform default search first and the
    directories added with [Loader.AddSearchPath] second.
 2. When a library exports both UnityPluginLoad and UnityPluginUnload, the load hook receives the host context
    right after acquisition and the unload hook runs right before release. A library exporting only one of
    them is loaded without hooks.
 3. Shared libraries are opened with dlopen through [purego] (LoadLibrary on windows), go object files are
    linked with [goloader], see [Mux].
 4. The registry of loaded modules lives in package pool, the host facing surface in package export and the
    C ABI in cmd/wrapper.

# Notes

 1. Nothing loaded is verified or sandboxed.
 2. Load order is decided by the caller, modules do not depend on each other through this package.
 3. Loading the same name twice is a no-op, there is no reference counting.
 4. A module whose release fails stays registered and may be released again later.

# Tools

The chainload cli inspects libraries and runs load/unload smoke tests:

	go install github.com/ZenLiuCN/chainload/cmd/chainload@latest

For more details see the cli help:

	chainload -h

[purego]: https://github.com/ebitengine/purego
[goloader]: https://github.com/pkujhd/goloader
*/
package chainload
