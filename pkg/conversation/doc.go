/*
Package conversation implements the conversation state table.

The table is the single owner of per-conversation flow state. Both the
automatic assist loop and operator actions go through it, and every
read-modify-write runs under a per-conversation lock so the two paths never
interleave on the same conversation.
*/
package conversation
