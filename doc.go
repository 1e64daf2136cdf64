// Package wordsdk converts Word documents to PDF by driving a conversion
// module compiled to WebAssembly.
//
// A Worker binds one isolated instance of the module, created by an
// engine.Provider, to one set of Options. Documents go in as a path, a byte
// slice or a stream, and PDFs come out the same ways:
//
//	provider, err := wazero.NewProvider(ctx, module)
//	if err != nil {
//	    return err
//	}
//	defer provider.Close(ctx)
//
//	w, err := wordsdk.CreateWorker(ctx, provider, wordsdk.Options{Verbose: 1})
//	if err != nil {
//	    return err
//	}
//	defer w.Close(ctx)
//
//	if err := w.ImportFile(ctx, "HelloWorld.docx"); err != nil {
//	    return err
//	}
//	return w.ExportPDFToFile(ctx, "out.pdf")
//
// Fonts and the license are process-wide and must be registered before
// workers are created (RegisterFont, UseSystemFonts, RegisterLicense).
//
// A Worker is meant for one logical caller. Its methods are serialised, so
// concurrent misuse fails cleanly but gains no throughput.
package wordsdk
