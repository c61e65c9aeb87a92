// Package chat mirrors Twitch chat into the message log alongside Telegram.
//
// StartTwitchRecorder joins the configured channels over IRC and converts:
//   - PRIVMSG into a received event (chat id = room id, message id = msg id,
//     from = "display | @login");
//   - CLEARMSG (a moderator deleting one message) into a deleted event for the
//     target message id.
//
// Credentials: with TWITCH_BOT_USERNAME and TWITCH_OAUTH_TOKEN the client logs
// in as the bot; without them it joins anonymously, which is enough to read.
package chat
