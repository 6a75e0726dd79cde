package sqlinline

const QSelectUserPreferences = `--sql 07e70c06-1951-4b01-be20-1f5471067d98
select
    user_id,
    coalesce(webhook_url_enc, '') as webhook_url_enc,
    coalesce(store_url, '') as store_url,
    coalesce(consumer_key_enc, '') as consumer_key_enc,
    coalesce(consumer_secret_enc, '') as consumer_secret_enc,
    updated_at
from user_preferences
where user_id = $1::bigint
limit 1;
`

const QUpsertUserPreferences = `--sql 0192f0e3-2a6a-4c7b-9441-42aa72433609
insert into user_preferences (user_id, webhook_url_enc, store_url, consumer_key_enc, consumer_secret_enc, created_at, updated_at)
values ($1::bigint, $2::text, $3::text, $4::text, $5::text, now(), now())
on conflict (user_id) do update set
    webhook_url_enc = excluded.webhook_url_enc,
    store_url = excluded.store_url,
    consumer_key_enc = excluded.consumer_key_enc,
    consumer_secret_enc = excluded.consumer_secret_enc,
    updated_at = now();
`
