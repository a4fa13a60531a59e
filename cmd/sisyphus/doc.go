// Command sisyphus voices SRT subtitles through a speech synthesis server and
// translates them with an OpenAI-compatible chat model.
//
// Every command runs in the foreground and honors SIGINT/SIGTERM. Input and
// configuration errors exit with status 2; backend failures exit with 1.
package main
